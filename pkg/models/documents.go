package models

// Role values a person can hold on a film work.
const (
	RoleActor    = "actor"
	RoleWriter   = "writer"
	RoleDirector = "director"
)

// Roles lists the accepted role values in canonical order.
var Roles = []string{RoleActor, RoleDirector, RoleWriter}

type PersonRef struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

type GenreRef struct {
	ID   string `json:"id" bson:"id"`
	Name string `json:"name" bson:"name"`
}

// FilmWork is the denormalized movie document. The *_names and genre fields
// are flat copies of the nested lists for full-text matching.
type FilmWork struct {
	ID           string      `json:"id" bson:"id"`
	IMDbRating   float64     `json:"imdb_rating" bson:"imdb_rating"`
	Title        string      `json:"title" bson:"title"`
	Description  string      `json:"description" bson:"description"`
	Genre        []string    `json:"genre" bson:"genre"`
	Genres       []GenreRef  `json:"genres" bson:"genres"`
	Director     []string    `json:"director" bson:"director"`
	Directors    []PersonRef `json:"directors" bson:"directors"`
	ActorsNames  []string    `json:"actors_names" bson:"actors_names"`
	Actors       []PersonRef `json:"actors" bson:"actors"`
	WritersNames []string    `json:"writers_names" bson:"writers_names"`
	Writers      []PersonRef `json:"writers" bson:"writers"`
}

type FilmRoles struct {
	ID    string   `json:"id" bson:"id"`
	Roles []string `json:"roles" bson:"roles"`
}

type Person struct {
	ID       string      `json:"id" bson:"id"`
	FullName string      `json:"full_name" bson:"full_name"`
	Films    []FilmRoles `json:"films" bson:"films"`
}

type Genre struct {
	ID          string `json:"id" bson:"id"`
	Name        string `json:"name" bson:"name"`
	Description string `json:"description" bson:"description"`
}
