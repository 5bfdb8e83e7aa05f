package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/microsoft/go-mssqldb"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/BartekS5/cinesync/pkg/logger"
)

// Source dialects understood by ConnectSQL.
const (
	DriverPostgres  = "postgres"
	DriverSQLServer = "sqlserver"
)

const (
	pingTimeout    = 5 * time.Second
	connectTimeout = 10 * time.Second
)

// sqlDriverName maps a dialect to its registered database/sql driver.
func sqlDriverName(dialect string) (string, error) {
	switch dialect {
	case DriverPostgres:
		return "pgx", nil
	case DriverSQLServer:
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("unsupported SQL driver %q", dialect)
	}
}

// ConnectSQL opens a pool for the given dialect and verifies it with a ping.
func ConnectSQL(ctx context.Context, dialect, connString string) (*sql.DB, error) {
	name, err := sqlDriverName(dialect)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(name, connString)
	if err != nil {
		return nil, fmt.Errorf("error opening SQL database: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to SQL database (ping failed): %w", err)
	}

	logger.Infof("Successfully connected to %s source.", dialect)
	return db, nil
}

func ConnectMongo(ctx context.Context, connString string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(connString))
	if err != nil {
		return nil, fmt.Errorf("error creating MongoDB client: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(ctx, pingTimeout)
	defer pingCancel()

	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), pingTimeout)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)

		return nil, fmt.Errorf("error connecting to MongoDB (ping failed): %w", err)
	}

	logger.Infof("Successfully connected to MongoDB.")
	return client, nil
}
