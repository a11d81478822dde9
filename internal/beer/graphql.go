package beer

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/graphql-go/graphql"
	"go.uber.org/zap"

	"BeerAPI/pkg/kit"
)

func newStyleEnum() *graphql.Enum {
	values := graphql.EnumValueConfigMap{}
	for _, st := range Styles {
		values[string(st)] = &graphql.EnumValueConfig{Value: string(st)}
	}
	return graphql.NewEnum(graphql.EnumConfig{
		Name:   "BeerStyle",
		Values: values,
	})
}

func newBeerType() *graphql.Object {
	return graphql.NewObject(graphql.ObjectConfig{
		Name: "Beer",
		Fields: graphql.Fields{
			"id":             &graphql.Field{Type: graphql.NewNonNull(graphql.ID)},
			"version":        &graphql.Field{Type: graphql.NewNonNull(graphql.Int)},
			"beerName":       &graphql.Field{Type: graphql.String},
			"beerStyle":      &graphql.Field{Type: newStyleEnum()},
			"upc":            &graphql.Field{Type: graphql.String},
			"quantityOnHand": &graphql.Field{Type: graphql.Int},
			"price":          &graphql.Field{Type: graphql.String},
			"createdDate":    &graphql.Field{Type: graphql.DateTime},
			"updateDate":     &graphql.Field{Type: graphql.DateTime},
		},
	})
}

// NewSchema builds the read-only GraphQL schema:
//
//	type Query { getBeers: [Beer!]! getBeerById(id: ID!): Beer }
func NewSchema(svc Service) (graphql.Schema, error) {
	beerType := newBeerType()

	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"getBeers": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(beerType))),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					beers, err := svc.List(p.Context)
					if err != nil {
						return nil, err
					}
					out := make([]map[string]any, 0, len(beers))
					for _, b := range beers {
						out = append(out, graphQLBeer(b))
					}
					return out, nil
				},
			},
			"getBeerById": &graphql.Field{
				Type: beerType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					raw, _ := p.Args["id"].(string)
					id, err := uuid.Parse(raw)
					if err != nil {
						return nil, ErrInvalidID
					}

					b, found, err := svc.Get(p.Context, id)
					if err != nil {
						return nil, err
					}
					if !found {
						return nil, ErrNotFound
					}
					return graphQLBeer(b), nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{Query: query})
}

func graphQLBeer(b Beer) map[string]any {
	return map[string]any{
		"id":             b.ID.String(),
		"version":        b.Version,
		"beerName":       b.Name,
		"beerStyle":      nullableStyle(b.Style),
		"upc":            b.UPC,
		"quantityOnHand": b.QuantityOnHand,
		"price":          b.Price.String(),
		"createdDate":    b.CreatedDate,
		"updateDate":     b.UpdateDate,
	}
}

func nullableStyle(s Style) any {
	if s == "" {
		return nil
	}
	return string(s)
}

type GraphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type GraphQLHandler struct {
	schema graphql.Schema
	log    *zap.Logger
}

func NewGraphQLHandler(svc Service, log *zap.Logger) (*GraphQLHandler, error) {
	schema, err := NewSchema(svc)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &GraphQLHandler{schema: schema, log: log}, nil
}

// ServeHTTP accepts a JSON body on POST or a query parameter on GET. Field
// errors, not-found included, are reported in the response "errors" list with
// status 200.
func (h *GraphQLHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req GraphQLRequest

	switch r.Method {
	case http.MethodGet:
		q := r.URL.Query()
		req.Query = q.Get("query")
		req.OperationName = q.Get("operationName")
		if v := q.Get("variables"); v != "" {
			if err := json.Unmarshal([]byte(v), &req.Variables); err != nil {
				kit.WriteError(w, r, http.StatusBadRequest, "bad variables", nil)
				return
			}
		}
	case http.MethodPost:
		if err := decodeJSON(w, r, &req, false); err != nil {
			kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
			return
		}
	default:
		w.Header().Set("Allow", "GET, POST")
		kit.WriteError(w, r, http.StatusMethodNotAllowed, "method not allowed", nil)
		return
	}

	if req.Query == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "query required", nil)
		return
	}

	res := graphql.Do(graphql.Params{
		Schema:         h.schema,
		RequestString:  req.Query,
		VariableValues: req.Variables,
		OperationName:  req.OperationName,
		Context:        r.Context(),
	})
	if res.HasErrors() {
		h.log.Debug("graphql errors", zap.Any("errors", res.Errors))
	}

	kit.WriteJSON(w, http.StatusOK, res)
}
