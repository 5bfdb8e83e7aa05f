package entity

import (
	"fmt"
	"sort"

	"github.com/BartekS5/cinesync/pkg/models"
	"github.com/BartekS5/cinesync/pkg/utils"
)

var persons = Registration{
	Name: "persons",
	Schema: models.CollectionSchema{
		Required: []string{"id", "full_name", "films"},
		Properties: map[string]models.Property{
			"id":        {Type: models.TypeString},
			"full_name": {Type: models.TypeString},
			"films": {
				Type: models.TypeArray,
				Items: &models.Property{
					Type:     models.TypeObject,
					Required: []string{"id", "roles"},
					Properties: map[string]models.Property{
						"id": {Type: models.TypeString},
						"roles": {
							Type:  models.TypeArray,
							Items: &models.Property{Type: models.TypeString, Enum: models.Roles},
						},
					},
				},
			},
		},
		Indexes: []models.Index{
			{Name: "persons_text", Fields: []string{"full_name"}, Text: true},
			{Name: "persons_films_id", Fields: []string{"films.id"}},
		},
	},
	Queries: map[string]string{
		dialectPostgres:  personsPostgres,
		dialectSQLServer: personsSQLServer,
	},
	Map: mapPerson,
}

// mapPerson folds the "films" association column into one entry per film.
// Entries carry either a "roles" list or a single "role".
func mapPerson(row models.Row) (models.Document, error) {
	r := newRowReader("persons", row)
	p := models.Person{
		ID:       r.id,
		FullName: r.str("full_name", true),
	}

	roles := make(map[string]map[string]bool)
	for i, f := range r.objects("films") {
		field := fmt.Sprintf("films[%d]", i)
		id, err := refID(f)
		if err != nil {
			r.fail(field+".id", "%v", err)
			break
		}
		got, err := filmRoles(f)
		if err != nil {
			r.fail(field+".roles", "%v", err)
			break
		}
		set, ok := roles[id]
		if !ok {
			set = make(map[string]bool)
			roles[id] = set
		}
		for _, role := range got {
			if !isRole(role) {
				r.fail(field+".roles", "value %q not in %v", role, models.Roles)
				break
			}
			set[role] = true
		}
	}

	p.Films = make([]models.FilmRoles, 0, len(roles))
	for id, set := range roles {
		list := make([]string, 0, len(set))
		for role := range set {
			list = append(list, role)
		}
		sort.Strings(list)
		p.Films = append(p.Films, models.FilmRoles{ID: id, Roles: list})
	}
	sort.Slice(p.Films, func(i, j int) bool { return p.Films[i].ID < p.Films[j].ID })

	if r.err != nil {
		return models.Document{}, r.err
	}
	return models.Document{ID: p.ID, Source: p}, nil
}

func filmRoles(obj map[string]interface{}) ([]string, error) {
	if v, ok := obj["roles"]; ok && v != nil {
		return utils.ToStringSlice(v)
	}
	if v, ok := obj["role"]; ok && v != nil {
		s, err := utils.ToString(v)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
	return []string{}, nil
}
