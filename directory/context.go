package directory

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/sgnl-ai/ldapquery/changetracker"
	"github.com/sgnl-ai/ldapquery/command"
	"github.com/sgnl-ai/ldapquery/ldaperr"
	"github.com/sgnl-ai/ldapquery/logging"
	"github.com/sgnl-ai/ldapquery/mapping"
	"github.com/sgnl-ai/ldapquery/querybuilder"
)

// Listener receives synchronous lifecycle callbacks around write operations
// (spec §4.4 "lifecycle listeners run synchronously around the wire call").
// A Pre* callback returning an error aborts the operation before the wire
// call is made; a Post* callback returning an error is propagated to the
// caller even though the wire call already succeeded (spec §7 "any listener
// failure aborts the operation and propagates").
type Listener[T any] struct {
	PreAdd     func(instance *T) error
	PostAdd    func(instance *T) error
	PreUpdate  func(instance *T) error
	PostUpdate func(instance *T) error
	PreDelete  func(dn string) error
	PostDelete func(dn string) error
}

// Context is the public entry point for issuing queries and write
// operations against a directory connection (spec §6). It tracks in-flight
// requests so Dispose can fail fast instead of racing a live request.
type Context struct {
	conn     DirectoryConnection
	log      logging.Logger
	mu       sync.Mutex
	disposed bool
	inflight atomic.Int64
}

// New wraps an already-dialed connection in a Context.
func New(conn DirectoryConnection, log logging.Logger) *Context {
	if log == nil {
		log = logging.Noop
	}

	return &Context{conn: conn, log: log}
}

// Dispose marks the context unusable; it fails with KindDisposedInUse if a
// request is still in flight (spec §4.4 disposed_in_use).
func (c *Context) Dispose() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inflight.Load() > 0 {
		return ldaperr.DisposedInUse("cannot dispose context with %d request(s) in flight", c.inflight.Load())
	}

	c.disposed = true

	return c.conn.Close()
}

func (c *Context) enter() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.disposed {
		return ldaperr.DisposedInUse("directory context has been disposed")
	}

	c.inflight.Add(1)

	return nil
}

func (c *Context) leave() { c.inflight.Add(-1) }

// QueryContext runs q against cm and returns the command.Result it produced.
func QueryContext[T any](ctx context.Context, dc *Context, q *querybuilder.Query[T], cm *mapping.ClassMap[T]) (command.Result[T], error) {
	if err := dc.enter(); err != nil {
		return command.Result[T]{}, err
	}
	defer dc.leave()

	plan, err := querybuilder.BuildPlan(q, cm)
	if err != nil {
		return command.Result[T]{}, err
	}

	dc.log.Trace("executing query", logging.Field{Key: "filter", Value: plan.Filter}, logging.Field{Key: "namingContext", Value: cm.NamingContext})

	return command.QueryCommand(ctx, dc.conn, cm, plan)
}

// Query is the non-context convenience form of QueryContext.
func Query[T any](dc *Context, q *querybuilder.Query[T], cm *mapping.ClassMap[T]) (command.Result[T], error) {
	return QueryContext(context.Background(), dc, q, cm)
}

// GetByDNContext fetches a single entry by distinguished name.
func GetByDNContext[T any](ctx context.Context, dc *Context, cm *mapping.ClassMap[T], dn string) (*T, *changetracker.Tracker[T], error) {
	if err := dc.enter(); err != nil {
		return nil, nil, err
	}
	defer dc.leave()

	return command.GetByDN(ctx, dc.conn, cm, dn, false)
}

// GetByDN is the non-context convenience form of GetByDNContext.
func GetByDN[T any](dc *Context, cm *mapping.ClassMap[T], dn string) (*T, *changetracker.Tracker[T], error) {
	return GetByDNContext(context.Background(), dc, cm, dn)
}

// AddContext adds instance, running any configured PreAdd/PostAdd listeners
// synchronously around the wire call.
func AddContext[T any](ctx context.Context, dc *Context, cm *mapping.ClassMap[T], instance *T, listener *Listener[T]) error {
	if err := dc.enter(); err != nil {
		return err
	}
	defer dc.leave()

	if listener != nil && listener.PreAdd != nil {
		if err := listener.PreAdd(instance); err != nil {
			return err
		}
	}

	if err := command.Add(ctx, dc.conn, cm, instance); err != nil {
		return err
	}

	if listener != nil && listener.PostAdd != nil {
		if err := listener.PostAdd(instance); err != nil {
			return err
		}
	}

	return nil
}

// Add is the non-context convenience form of AddContext.
func Add[T any](dc *Context, cm *mapping.ClassMap[T], instance *T, listener *Listener[T]) error {
	return AddContext(context.Background(), dc, cm, instance, listener)
}

// AddAndGetContext adds instance then re-fetches it by DN, returning a
// change-tracked copy ready for Update.
func AddAndGetContext[T any](ctx context.Context, dc *Context, cm *mapping.ClassMap[T], instance *T, listener *Listener[T]) (*T, *changetracker.Tracker[T], error) {
	if err := AddContext(ctx, dc, cm, instance, listener); err != nil {
		return nil, nil, err
	}

	return GetByDNContext(ctx, dc, cm, dnOf(cm, instance))
}

func dnOf[T any](cm *mapping.ClassMap[T], instance *T) string {
	pm, ok := cm.Properties[cm.DistinguishedNameProperty]
	if !ok {
		return ""
	}

	v := pm.Get(instance)
	s, _ := v.(string)

	return s
}

// UpdateContext sends the minimal change set computed by tr for instance,
// running any configured PreUpdate/PostUpdate listeners around the wire
// call. A nil tracker fails with KindUntrackedUpdate (spec §4.5).
func UpdateContext[T any](ctx context.Context, dc *Context, tr *changetracker.Tracker[T], instance *T, listener *Listener[T]) error {
	if err := dc.enter(); err != nil {
		return err
	}
	defer dc.leave()

	if listener != nil && listener.PreUpdate != nil {
		if err := listener.PreUpdate(instance); err != nil {
			return err
		}
	}

	if err := command.Update(ctx, dc.conn, tr, instance); err != nil {
		return err
	}

	if listener != nil && listener.PostUpdate != nil {
		if err := listener.PostUpdate(instance); err != nil {
			return err
		}
	}

	return nil
}

// Update is the non-context convenience form of UpdateContext.
func Update[T any](dc *Context, tr *changetracker.Tracker[T], instance *T, listener *Listener[T]) error {
	return UpdateContext(context.Background(), dc, tr, instance, listener)
}

// DeleteContext removes the entry at dn, running PreDelete/PostDelete
// listeners if supplied.
func DeleteContext[T any](ctx context.Context, dc *Context, dn string, treeDelete bool, listener *Listener[T]) error {
	if err := dc.enter(); err != nil {
		return err
	}
	defer dc.leave()

	if listener != nil && listener.PreDelete != nil {
		if err := listener.PreDelete(dn); err != nil {
			return err
		}
	}

	if err := command.Delete(ctx, dc.conn, dn, treeDelete); err != nil {
		return err
	}

	if listener != nil && listener.PostDelete != nil {
		if err := listener.PostDelete(dn); err != nil {
			return err
		}
	}

	return nil
}

// Delete is the non-context convenience form of DeleteContext.
func Delete[T any](dc *Context, dn string, treeDelete bool, listener *Listener[T]) error {
	return DeleteContext[T](context.Background(), dc, dn, treeDelete, listener)
}

// MoveEntryContext relocates dn under newParent without renaming it.
func MoveEntryContext(ctx context.Context, dc *Context, dn, newParent string) error {
	if err := dc.enter(); err != nil {
		return err
	}
	defer dc.leave()

	rdn, err := leafRDN(dn)
	if err != nil {
		return err
	}

	return command.ModifyDN(ctx, dc.conn, dn, rdn, newParent, false)
}

// MoveEntry is the non-context convenience form of MoveEntryContext.
func MoveEntry(dc *Context, dn, newParent string) error {
	return MoveEntryContext(context.Background(), dc, dn, newParent)
}

// RenameEntryContext renames dn's leaf RDN without moving it.
func RenameEntryContext(ctx context.Context, dc *Context, dn, newRDN string) error {
	if err := dc.enter(); err != nil {
		return err
	}
	defer dc.leave()

	return command.ModifyDN(ctx, dc.conn, dn, newRDN, "", true)
}

// RenameEntry is the non-context convenience form of RenameEntryContext.
func RenameEntry(dc *Context, dn, newRDN string) error {
	return RenameEntryContext(context.Background(), dc, dn, newRDN)
}

func leafRDN(dn string) (string, error) {
	for i := 0; i < len(dn); i++ {
		if dn[i] == ',' && (i == 0 || dn[i-1] != '\\') {
			if i == 0 {
				return "", ldaperr.InvalidArgument("malformed dn %q", dn)
			}

			return dn[:i], nil
		}
	}

	if dn == "" {
		return "", ldaperr.InvalidArgument("dn must not be empty")
	}

	return dn, nil
}
