package entity

import (
	"fmt"
	"sort"

	"github.com/BartekS5/cinesync/pkg/models"
)

var refSchema = models.Property{
	Type:     models.TypeObject,
	Required: []string{"id", "name"},
	Properties: map[string]models.Property{
		"id":   {Type: models.TypeString},
		"name": {Type: models.TypeString},
	},
}

var stringList = models.Property{Type: models.TypeArray, Items: &models.Property{Type: models.TypeString}}

var refList = models.Property{Type: models.TypeArray, Items: &refSchema}

var movies = Registration{
	Name: "movies",
	Schema: models.CollectionSchema{
		Required: []string{
			"id", "imdb_rating", "title", "description",
			"genre", "genres", "director", "directors",
			"actors_names", "actors", "writers_names", "writers",
		},
		Properties: map[string]models.Property{
			"id":            {Type: models.TypeString},
			"imdb_rating":   {Type: models.TypeDouble, Minimum: models.Float(0), Maximum: models.Float(10)},
			"title":         {Type: models.TypeString},
			"description":   {Type: models.TypeString},
			"genre":         stringList,
			"genres":        refList,
			"director":      stringList,
			"directors":     refList,
			"actors_names":  stringList,
			"actors":        refList,
			"writers_names": stringList,
			"writers":       refList,
		},
		Indexes: []models.Index{
			{Name: "movies_text", Fields: []string{"title", "description"}, Text: true},
			{Name: "movies_genres_id", Fields: []string{"genres.id"}},
			{Name: "movies_actors_id", Fields: []string{"actors.id"}},
			{Name: "movies_directors_id", Fields: []string{"directors.id"}},
			{Name: "movies_writers_id", Fields: []string{"writers.id"}},
			{Name: "movies_imdb_rating", Fields: []string{"imdb_rating"}},
		},
	},
	Queries: map[string]string{
		dialectPostgres:  moviesPostgres,
		dialectSQLServer: moviesSQLServer,
	},
	Map: mapMovie,
}

// mapMovie builds a film work document from a row carrying the film columns
// plus aggregated "genres" [{id,name}] and "persons" [{id,name,role}].
func mapMovie(row models.Row) (models.Document, error) {
	r := newRowReader("movies", row)
	fw := models.FilmWork{
		ID:          r.id,
		IMDbRating:  r.float("imdb_rating"),
		Title:       r.str("title", true),
		Description: r.str("description", false),
	}

	genres := r.objects("genres")
	fw.Genres = make([]models.GenreRef, 0, len(genres))
	seenGenre := make(map[string]bool, len(genres))
	for i, g := range genres {
		field := fmt.Sprintf("genres[%d]", i)
		id, err := refID(g)
		if err != nil {
			r.fail(field+".id", "%v", err)
			break
		}
		if seenGenre[id] {
			continue
		}
		seenGenre[id] = true
		fw.Genres = append(fw.Genres, models.GenreRef{ID: id, Name: refName(g, "name")})
	}
	sortRefs(fw.Genres, func(g models.GenreRef) (string, string) { return g.Name, g.ID })

	fw.Directors = []models.PersonRef{}
	fw.Actors = []models.PersonRef{}
	fw.Writers = []models.PersonRef{}
	seenPerson := make(map[string]bool)
	for i, p := range r.objects("persons") {
		field := fmt.Sprintf("persons[%d]", i)
		id, err := refID(p)
		if err != nil {
			r.fail(field+".id", "%v", err)
			break
		}
		role := refName(p, "role")
		if !isRole(role) {
			r.fail(field+".role", "value %q not in %v", role, models.Roles)
			break
		}
		key := role + "/" + id
		if seenPerson[key] {
			continue
		}
		seenPerson[key] = true
		ref := models.PersonRef{ID: id, Name: refName(p, "name")}
		switch role {
		case models.RoleDirector:
			fw.Directors = append(fw.Directors, ref)
		case models.RoleActor:
			fw.Actors = append(fw.Actors, ref)
		case models.RoleWriter:
			fw.Writers = append(fw.Writers, ref)
		}
	}

	byName := func(p models.PersonRef) (string, string) { return p.Name, p.ID }
	sortRefs(fw.Directors, byName)
	sortRefs(fw.Actors, byName)
	sortRefs(fw.Writers, byName)

	fw.Genre = names(fw.Genres, func(g models.GenreRef) string { return g.Name })
	fw.Director = names(fw.Directors, personName)
	fw.ActorsNames = names(fw.Actors, personName)
	fw.WritersNames = names(fw.Writers, personName)

	if r.err != nil {
		return models.Document{}, r.err
	}
	return models.Document{ID: fw.ID, Source: fw}, nil
}

func refID(obj map[string]interface{}) (string, error) {
	v, ok := obj["id"]
	if !ok || v == nil {
		return "", fmt.Errorf("required field missing")
	}
	return normalizeID(v)
}

func refName(obj map[string]interface{}, key string) string {
	if s, ok := obj[key].(string); ok {
		return s
	}
	return ""
}

func personName(p models.PersonRef) string { return p.Name }

func sortRefs[T any](refs []T, key func(T) (string, string)) {
	sort.SliceStable(refs, func(i, j int) bool {
		ni, ii := key(refs[i])
		nj, ij := key(refs[j])
		if ni != nj {
			return ni < nj
		}
		return ii < ij
	})
}

func names[T any](refs []T, name func(T) string) []string {
	out := make([]string, 0, len(refs))
	for _, r := range refs {
		out = append(out, name(r))
	}
	return out
}
