package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cqlkit/cqlmap/internal/mapping"
	"github.com/cqlkit/cqlmap/internal/query"
)

// ErrDryRun is returned when a dry-run template is asked to execute
var ErrDryRun = errors.New("dry run: statement not executed")

type dryRunExecutor struct{}

func (dryRunExecutor) rows(context.Context, *query.Statement) ([]map[string]interface{}, error) {
	return nil, ErrDryRun
}

func (dryRunExecutor) scan(context.Context, *query.Statement, ...interface{}) error {
	return ErrDryRun
}

func (dryRunExecutor) exec(context.Context, *query.Statement) error {
	return ErrDryRun
}

// NewDryRunTemplate returns a template that derives statements without a
// cluster. Every execution fails with ErrDryRun.
func NewDryRunTemplate(mc *mapping.Context, opts ...TemplateOption) *Template {
	return newTemplate(dryRunExecutor{}, mc, opts...)
}

// Plan is a derived query rendered for one set of arguments
type Plan struct {
	Query     *query.PartTreeQuery
	Statement *query.Statement
}

// Derive parses method against the named entity and renders it. args are
// bound in order; IN and NOT_IN arguments are split on commas. With no args
// every parameter is bound to an empty placeholder so the statement can be
// shown before values are known.
func (t *Template) Derive(entityName, method string, args []string, allowFiltering bool) (*Plan, error) {
	entity, ok := t.mapping.Entity(entityName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", mapping.ErrEntityNotFound, entityName)
	}

	q, err := query.NewPartTreeQuery(&query.Method{
		Name:           method,
		Entity:         entity,
		AllowFiltering: allowFiltering,
	}, t, query.WithLogger(t.logger), query.WithMetrics(t.metrics))
	if err != nil {
		return nil, err
	}

	values, err := bindArgs(q.Tree(), args)
	if err != nil {
		return nil, err
	}
	params, err := query.NewParametersParameterAccessor(nil, values)
	if err != nil {
		return nil, err
	}
	stmt, err := q.CreateQuery(params)
	if err != nil {
		return nil, err
	}
	return &Plan{Query: q, Statement: stmt}, nil
}

func bindArgs(tree *query.PartTree, args []string) ([]interface{}, error) {
	want := tree.NumberOfArguments()
	placeholders := len(args) == 0
	if !placeholders && len(args) != want {
		return nil, fmt.Errorf("%w: %s takes %d arguments, got %d", query.ErrInvalidParameter, tree.Source(), want, len(args))
	}

	values := make([]interface{}, 0, want)
	for _, part := range tree.Parts() {
		for i := 0; i < part.NumberOfArguments(); i++ {
			var raw string
			if !placeholders {
				raw = args[len(values)]
			}
			switch part.Type() {
			case query.In, query.NotIn:
				if raw == "" {
					values = append(values, []string{})
				} else {
					values = append(values, strings.Split(raw, ","))
				}
			default:
				values = append(values, raw)
			}
		}
	}
	return values, nil
}

// PartDescription describes one criterion of a derived query
type PartDescription struct {
	Property   string `json:"property"`
	Column     string `json:"column"`
	Keyword    string `json:"keyword"`
	IgnoreCase bool   `json:"ignore_case,omitempty"`
}

// PlanDescription is the serializable form of a Plan
type PlanDescription struct {
	Entity   string            `json:"entity"`
	Method   string            `json:"method"`
	Action   string            `json:"action"`
	Distinct bool              `json:"distinct,omitempty"`
	Limit    int               `json:"limit,omitempty"`
	Parts    []PartDescription `json:"parts"`
	OrderBy  []string          `json:"order_by,omitempty"`
	CQL      string            `json:"cql"`
	Values   []interface{}     `json:"values"`
}

// Describe flattens the plan for display
func (p *Plan) Describe() PlanDescription {
	tree := p.Query.Tree()
	subject := tree.Subject()

	d := PlanDescription{
		Entity:   p.Query.Method().Entity.Name(),
		Method:   tree.Source(),
		Action:   subject.Action().String(),
		Distinct: subject.IsDistinct(),
		Limit:    subject.MaxResults(),
		Parts:    make([]PartDescription, 0, len(tree.Parts())),
		CQL:      p.Statement.Query,
		Values:   p.Statement.Values,
	}
	for _, part := range tree.Parts() {
		d.Parts = append(d.Parts, PartDescription{
			Property:   part.Path(),
			Column:     mapping.ColumnPath(part.PropertyPath()),
			Keyword:    part.Type().String(),
			IgnoreCase: part.IgnoreCase() != query.IgnoreCaseNever,
		})
	}
	for _, o := range tree.Sort() {
		d.OrderBy = append(d.OrderBy, o.Column()+" "+o.Direction().String())
	}
	return d
}
