// Package tasks registers the sample task functions on a backend.Server.
//
//	tasks:getAll   query     every task, oldest first
//	tasks:byId     query     one task by id, or null
//	tasks:create   mutation  inserts a task and returns its id
//	tasks:list     query     paginated tasks
package tasks

import (
	"errors"
	"fmt"

	"github.com/arloliu/livesub/backend"
	"github.com/arloliu/livesub/types"
)

// Table is the table holding tasks.
const Table = "tasks"

// Function references of the sample functions.
var (
	GetAll = types.QueryRef("tasks:getAll")
	ByID   = types.QueryRef("tasks:byId")
	Create = types.MutationRef("tasks:create")
	List   = types.QueryRef("tasks:list")
)

// Task is the decoded form of a task document.
type Task struct {
	ID           string `json:"_id"`
	CreationTime int64  `json:"_creationTime"`
	Title        string `json:"title"`
	Category     string `json:"category"`
	Completed    bool   `json:"completed"`
}

// Register adds the task functions to s.
func Register(s *backend.Server) error {
	return errors.Join(
		s.RegisterQuery(GetAll.Name, getAll),
		s.RegisterQuery(ByID.Name, byID),
		s.RegisterMutation(Create.Name, create),
		s.RegisterQuery(List.Name, list),
	)
}

func getAll(qc *backend.QueryCtx, _ types.Args) (any, error) {
	docs, err := qc.DB.Collect(qc, Table)
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []backend.Document{}
	}

	return docs, nil
}

func byID(qc *backend.QueryCtx, args types.Args) (any, error) {
	id, err := stringArg(args, "id")
	if err != nil {
		return nil, err
	}

	doc, ok, err := qc.DB.Get(qc, id)
	if err != nil {
		return nil, err
	}
	if !ok || doc.Table != Table {
		return nil, nil
	}

	return doc, nil
}

func create(mc *backend.MutationCtx, args types.Args) (any, error) {
	title, err := stringArg(args, "title")
	if err != nil {
		return nil, err
	}
	category, err := stringArg(args, "category")
	if err != nil {
		return nil, err
	}
	completed, ok := args["completed"].(bool)
	if !ok {
		return nil, errors.New(`argument "completed" must be a boolean`)
	}

	return mc.DB.Insert(mc, Table, map[string]any{
		"title":     title,
		"category":  category,
		"completed": completed,
	})
}

func list(qc *backend.QueryCtx, args types.Args) (any, error) {
	opts, err := backend.PaginationOpts(args)
	if err != nil {
		return nil, err
	}

	return qc.DB.Paginate(qc, Table, opts)
}

func stringArg(args types.Args, name string) (string, error) {
	v, ok := args[name].(string)
	if !ok {
		return "", fmt.Errorf("argument %q must be a string", name)
	}

	return v, nil
}
