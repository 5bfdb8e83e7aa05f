package entity

import "github.com/BartekS5/cinesync/pkg/models"

var genres = Registration{
	Name: "genres",
	Schema: models.CollectionSchema{
		Required: []string{"id", "name", "description"},
		Properties: map[string]models.Property{
			"id":          {Type: models.TypeString},
			"name":        {Type: models.TypeString},
			"description": {Type: models.TypeString},
		},
		Indexes: []models.Index{
			{Name: "genres_name", Fields: []string{"name"}},
		},
	},
	Queries: map[string]string{
		dialectPostgres:  genresPostgres,
		dialectSQLServer: genresSQLServer,
	},
	Map: mapGenre,
}

func mapGenre(row models.Row) (models.Document, error) {
	r := newRowReader("genres", row)
	g := models.Genre{
		ID:          r.id,
		Name:        r.str("name", true),
		Description: r.str("description", false),
	}
	if r.err != nil {
		return models.Document{}, r.err
	}
	return models.Document{ID: g.ID, Source: g}, nil
}
