package entity

import "github.com/BartekS5/cinesync/pkg/database"

const (
	dialectPostgres  = database.DriverPostgres
	dialectSQLServer = database.DriverSQLServer
)

// Every template selects a row when the entity itself or one of its
// associations changed after the watermark, then aggregates the complete
// association set for that row. Ids and aggregates are returned as text.

const moviesPostgres = `
WITH changed AS (
    SELECT fw.id FROM content.film_work fw WHERE fw.modified > $1
    UNION
    SELECT pfw.film_work_id FROM content.person_film_work pfw
    JOIN content.person p ON p.id = pfw.person_id
    WHERE p.modified > $1
    UNION
    SELECT gfw.film_work_id FROM content.genre_film_work gfw
    JOIN content.genre g ON g.id = gfw.genre_id
    WHERE g.modified > $1
)
SELECT
    fw.id::text AS id,
    COALESCE(fw.rating, 0)::float8 AS imdb_rating,
    COALESCE(fw.title, '') AS title,
    COALESCE(fw.description, '') AS description,
    COALESCE(
        jsonb_agg(DISTINCT jsonb_build_object('id', g.id, 'name', g.name))
            FILTER (WHERE g.id IS NOT NULL),
        '[]'::jsonb
    )::text AS genres,
    COALESCE(
        jsonb_agg(DISTINCT jsonb_build_object('id', p.id, 'name', p.full_name, 'role', pfw.role))
            FILTER (WHERE p.id IS NOT NULL),
        '[]'::jsonb
    )::text AS persons
FROM content.film_work fw
LEFT JOIN content.person_film_work pfw ON pfw.film_work_id = fw.id
LEFT JOIN content.person p ON p.id = pfw.person_id
LEFT JOIN content.genre_film_work gfw ON gfw.film_work_id = fw.id
LEFT JOIN content.genre g ON g.id = gfw.genre_id
WHERE fw.id IN (SELECT id FROM changed)
GROUP BY fw.id
ORDER BY fw.id`

const personsPostgres = `
WITH changed AS (
    SELECT p.id FROM content.person p WHERE p.modified > $1
    UNION
    SELECT pfw.person_id FROM content.person_film_work pfw
    JOIN content.film_work fw ON fw.id = pfw.film_work_id
    WHERE fw.modified > $1
),
film_roles AS (
    SELECT pfw.person_id, pfw.film_work_id, jsonb_agg(DISTINCT pfw.role) AS roles
    FROM content.person_film_work pfw
    WHERE pfw.person_id IN (SELECT id FROM changed)
    GROUP BY pfw.person_id, pfw.film_work_id
)
SELECT
    p.id::text AS id,
    p.full_name AS full_name,
    COALESCE(
        jsonb_agg(jsonb_build_object('id', fr.film_work_id, 'roles', fr.roles))
            FILTER (WHERE fr.film_work_id IS NOT NULL),
        '[]'::jsonb
    )::text AS films
FROM content.person p
LEFT JOIN film_roles fr ON fr.person_id = p.id
WHERE p.id IN (SELECT id FROM changed)
GROUP BY p.id
ORDER BY p.id`

const genresPostgres = `
SELECT
    g.id::text AS id,
    g.name AS name,
    g.description AS description
FROM content.genre g
WHERE g.modified > $1
ORDER BY g.id`

const moviesSQLServer = `
SELECT
    CAST(fw.id AS NVARCHAR(36)) AS id,
    CAST(COALESCE(fw.rating, 0) AS FLOAT) AS imdb_rating,
    COALESCE(fw.title, '') AS title,
    COALESCE(fw.description, '') AS description,
    COALESCE((
        SELECT DISTINCT CAST(g.id AS NVARCHAR(36)) AS id, COALESCE(g.name, '') AS name
        FROM content.genre_film_work gfw
        JOIN content.genre g ON g.id = gfw.genre_id
        WHERE gfw.film_work_id = fw.id
        FOR JSON PATH
    ), '[]') AS genres,
    COALESCE((
        SELECT DISTINCT CAST(p.id AS NVARCHAR(36)) AS id, COALESCE(p.full_name, '') AS name, pfw.role AS role
        FROM content.person_film_work pfw
        JOIN content.person p ON p.id = pfw.person_id
        WHERE pfw.film_work_id = fw.id
        FOR JSON PATH
    ), '[]') AS persons
FROM content.film_work fw
WHERE fw.id IN (
    SELECT f.id FROM content.film_work f WHERE f.modified > @p1
    UNION
    SELECT pfw.film_work_id FROM content.person_film_work pfw
    JOIN content.person p ON p.id = pfw.person_id
    WHERE p.modified > @p1
    UNION
    SELECT gfw.film_work_id FROM content.genre_film_work gfw
    JOIN content.genre g ON g.id = gfw.genre_id
    WHERE g.modified > @p1
)
ORDER BY fw.id`

const personsSQLServer = `
SELECT
    CAST(p.id AS NVARCHAR(36)) AS id,
    p.full_name AS full_name,
    COALESCE((
        SELECT CAST(pfw.film_work_id AS NVARCHAR(36)) AS id, pfw.role AS role
        FROM content.person_film_work pfw
        WHERE pfw.person_id = p.id
        FOR JSON PATH
    ), '[]') AS films
FROM content.person p
WHERE p.id IN (
    SELECT pp.id FROM content.person pp WHERE pp.modified > @p1
    UNION
    SELECT pfw.person_id FROM content.person_film_work pfw
    JOIN content.film_work fw ON fw.id = pfw.film_work_id
    WHERE fw.modified > @p1
)
ORDER BY p.id`

const genresSQLServer = `
SELECT
    CAST(g.id AS NVARCHAR(36)) AS id,
    g.name AS name,
    g.description AS description
FROM content.genre g
WHERE g.modified > @p1
ORDER BY g.id`
