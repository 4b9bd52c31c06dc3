// Package dynamodel maps Go values to DynamoDB items.
//
// A TableModel describes how one Go type is stored: which field feeds which
// attribute, which attributes form the primary key, which are version
// counters, and which secondary indexes the fields participate in. Models
// are built once and are safe for concurrent use.
//
// # Building a model
//
// Fields are registered with typed accessors, so no reflection is needed to
// read or write them:
//
//	orders := dynamodel.NewBuilder(func() *Order { return &Order{} }).With(
//		dynamodel.Field("customer",
//			func(o *Order) string { return o.Customer },
//			func(o *Order, v string) { o.Customer = v },
//			dynamodel.HashKey()),
//		dynamodel.Field("placed",
//			func(o *Order) time.Time { return o.Placed },
//			func(o *Order, v time.Time) { o.Placed = v },
//			dynamodel.RangeKey()),
//		dynamodel.Field("status",
//			func(o *Order) Status { return o.Status },
//			func(o *Order, v Status) { o.Status = v },
//			dynamodel.GlobalIndex("by-status", types.KeyTypeHash)),
//		dynamodel.Field("rev",
//			func(o *Order) int64 { return o.Rev },
//			func(o *Order, v int64) { o.Rev = v },
//			dynamodel.Version()),
//	).MustBuild()
//
// FromStruct derives the same model from struct tags:
//
//	type Order struct {
//		Customer string    `ddb:"customer,hash"`
//		Placed   time.Time `ddb:"placed,range"`
//		Status   Status    `ddb:"status" gsi:"by-status:hash"`
//		Rev      int64     `ddb:"rev,version"`
//	}
//
// # Conversions
//
// Values are converted through scalars: BigInt, Bool, Duration, Int, Uint,
// Float, Bytes, String, DateTime, UnixTime, Time and UUID, checked in that
// order, with a default scalar last. GetConverter joins the conversions of
// two scalars, so any numeric type converts to any other within range, and
// enums convert to and from their names. Numbers travel as decimal text.
//
// Slices are lists, string-keyed maps are maps, map[K]struct{} and fields
// marked AsSet are string, number or binary sets. Other types are stored as
// documents with attributevalue.Marshal.
//
// # Tables
//
// Table binds a model to a table name and marshals put, get, delete and
// create table requests. Version attributes are incremented on every put
// and guarded by a condition expression, so concurrent writers get
// ErrVersionConflict instead of overwriting each other.
//
//	table := dynamodel.NewTable("orders", orders)
//	if err := table.Save(ctx, client, order); errors.Is(err, dynamodel.ErrVersionConflict) {
//		// reload and retry
//	}
//
// # Pagination
//
// TablePaginator stores last evaluated keys in the table and hands out
// opaque cursors:
//
//	paginator, _ := table.Paginator(client, time.Hour)
//	cursor, _ := paginator.PageCursor(ctx, out.LastEvaluatedKey)
package dynamodel
