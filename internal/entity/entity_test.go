package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/cinesync/pkg/database"
	"github.com/BartekS5/cinesync/pkg/models"
)

const (
	filmID   = "3d825f60-9fff-4dfe-b294-1a45fa1e115d"
	filmID2  = "0312ed51-8833-413f-bff5-0e139c11264a"
	personA  = "5b4bf1bc-3397-4e83-9b17-8b10c6544ed1"
	personB  = "26e83050-29ef-4163-a99d-b546cac208f8"
	genreID  = "120a21cf-9097-479e-904a-13dd7198c1dd"
	genreID2 = "b92ef010-5e4c-4fd0-99d6-41b6456272cd"
)

func TestSelect(t *testing.T) {
	all, err := Select(nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"movies", "persons", "genres"}, regNames(all))

	some, err := Select([]string{"genres", "movies"})
	require.NoError(t, err)
	assert.Equal(t, []string{"movies", "genres"}, regNames(some), "registration order wins")

	_, err = Select([]string{"series"})
	assert.Error(t, err)
}

func regNames(regs []Registration) []string {
	out := make([]string, len(regs))
	for i, r := range regs {
		out[i] = r.Name
	}
	return out
}

func TestRegisteredQueriesAreValid(t *testing.T) {
	require.NoError(t, Check(All(), database.DriverPostgres))
	require.NoError(t, Check(All(), database.DriverSQLServer))
}

func TestCheckQueryRejects(t *testing.T) {
	tests := []struct {
		name  string
		query string
	}{
		{"empty", "   "},
		{"syntax", "SELEC id FROM t"},
		{"not a select", "DELETE FROM content.genre WHERE modified > $1"},
		{"two statements", "SELECT 1 WHERE now() > $1; SELECT 2"},
		{"no watermark", "SELECT id FROM content.genre"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, CheckQuery(database.DriverPostgres, tt.query))
		})
	}
	assert.Error(t, CheckQuery(database.DriverSQLServer, "SELECT id FROM content.genre"))
	assert.Error(t, CheckQuery("oracle", "SELECT 1"))
}

func TestMapMovieSplitsRoles(t *testing.T) {
	row := models.Row{
		"id":          filmID,
		"imdb_rating": 8.5,
		"title":       "The Star",
		"description": nil,
		"genres":      `[{"id":"` + genreID2 + `","name":"Sci-Fi"},{"id":"` + genreID + `","name":"Action"}]`,
		"persons": `[
			{"id":"` + personA + `","name":"Ann","role":"actor"},
			{"id":"` + personB + `","name":"Bob","role":"director"},
			{"id":"` + personA + `","name":"Ann","role":"writer"},
			{"id":"` + personA + `","name":"Ann","role":"actor"}
		]`,
	}
	doc, err := mapMovie(row)
	require.NoError(t, err)
	assert.Equal(t, filmID, doc.ID)

	fw := doc.Source.(models.FilmWork)
	assert.Equal(t, "", fw.Description)
	assert.Equal(t, []string{"Action", "Sci-Fi"}, fw.Genre)
	assert.Equal(t, []models.PersonRef{{ID: personA, Name: "Ann"}}, fw.Actors, "duplicates collapse")
	assert.Equal(t, []string{"Ann"}, fw.ActorsNames)
	assert.Equal(t, []models.PersonRef{{ID: personB, Name: "Bob"}}, fw.Directors)
	assert.Equal(t, []string{"Bob"}, fw.Director)
	assert.Equal(t, []string{"Ann"}, fw.WritersNames)

	require.NoError(t, movies.Schema.Validate("movies", doc))
}

func TestMapMovieEmptyAssociations(t *testing.T) {
	doc, err := mapMovie(models.Row{"id": filmID, "title": "Solo", "genres": nil, "persons": "[]"})
	require.NoError(t, err)

	fields, err := doc.Fields()
	require.NoError(t, err)
	for _, k := range []string{"genre", "genres", "director", "directors", "actors_names", "actors", "writers_names", "writers"} {
		assert.Equal(t, []interface{}{}, fields[k], k)
	}
	assert.Equal(t, "", fields["description"])
	require.NoError(t, movies.Schema.Validate("movies", doc))
}

func TestMapMovieValidation(t *testing.T) {
	tests := []struct {
		name  string
		row   models.Row
		field string
	}{
		{"missing id", models.Row{"title": "x"}, "id"},
		{"bad id", models.Row{"id": "42", "title": "x"}, "id"},
		{"missing title", models.Row{"id": filmID}, "title"},
		{"bad role", models.Row{"id": filmID, "title": "x", "persons": `[{"id":"` + personA + `","name":"A","role":"grip"}]`}, "persons[0].role"},
		{"bad person id", models.Row{"id": filmID, "title": "x", "persons": `[{"name":"A","role":"actor"}]`}, "persons[0].id"},
		{"broken json", models.Row{"id": filmID, "title": "x", "genres": `[{`}, "genres"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := mapMovie(tt.row)
			var verr *models.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.Equal(t, "movies", verr.Entity)
		})
	}
}

func TestMovieRatingOutOfRangeFailsSchema(t *testing.T) {
	doc, err := mapMovie(models.Row{"id": filmID, "title": "x", "imdb_rating": "11.5"})
	require.NoError(t, err)
	err = movies.Schema.Validate("movies", doc)
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "imdb_rating", verr.Field)
}

func TestMapPersonMergesRolesPerFilm(t *testing.T) {
	orders := []string{
		`[{"id":"` + filmID + `","roles":["writer"]},{"id":"` + filmID2 + `","role":"actor"},{"id":"` + filmID + `","roles":["actor","writer"]}]`,
		`[{"id":"` + filmID + `","roles":["actor"]},{"id":"` + filmID + `","role":"writer"},{"id":"` + filmID2 + `","roles":["actor"]}]`,
	}
	want := []models.FilmRoles{
		{ID: filmID2, Roles: []string{"actor"}},
		{ID: filmID, Roles: []string{"actor", "writer"}},
	}

	var encoded [][]byte
	for _, films := range orders {
		doc, err := mapPerson(models.Row{"full_name": "Ann", "films": films, "id": personA})
		require.NoError(t, err)
		assert.Equal(t, want, doc.Source.(models.Person).Films)
		require.NoError(t, persons.Schema.Validate("persons", doc))

		raw, err := doc.Encode()
		require.NoError(t, err)
		encoded = append(encoded, raw)
	}
	assert.Equal(t, encoded[0], encoded[1], "input order does not change the document")
}

func TestMapPersonUpperCaseIDs(t *testing.T) {
	doc, err := mapPerson(models.Row{
		"id":        "5B4BF1BC-3397-4E83-9B17-8B10C6544ED1",
		"full_name": "Ann",
		"films":     []byte(`[{"id":"3D825F60-9FFF-4DFE-B294-1A45FA1E115D","role":"director"}]`),
	})
	require.NoError(t, err)
	assert.Equal(t, personA, doc.ID)
	assert.Equal(t, filmID, doc.Source.(models.Person).Films[0].ID)
}

func TestMapPersonRejectsUnknownRole(t *testing.T) {
	_, err := mapPerson(models.Row{"id": personA, "full_name": "Ann", "films": `[{"id":"` + filmID + `","roles":["stunt"]}]`})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "films[0].roles", verr.Field)
}

func TestMapGenre(t *testing.T) {
	doc, err := mapGenre(models.Row{"id": genreID, "name": "Action", "description": nil})
	require.NoError(t, err)
	assert.Equal(t, models.Genre{ID: genreID, Name: "Action", Description: ""}, doc.Source)

	_, err = mapGenre(models.Row{"id": genreID, "name": nil})
	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestMappingIsDeterministic(t *testing.T) {
	row := models.Row{
		"id":      filmID,
		"title":   "Twice",
		"genres":  `[{"id":"` + genreID + `","name":"Drama"}]`,
		"persons": `[{"id":"` + personB + `","name":"Bob","role":"actor"},{"id":"` + personA + `","name":"Ann","role":"actor"}]`,
	}
	a, err := mapMovie(row)
	require.NoError(t, err)
	b, err := mapMovie(row)
	require.NoError(t, err)

	ra, err := a.Encode()
	require.NoError(t, err)
	rb, err := b.Encode()
	require.NoError(t, err)
	assert.Equal(t, ra, rb)
}
