// Package pagenav provides offset-style page navigation on top of stores that
// only support forward cursors and a separately billed exact count.
//
// Overview
//
// A remote store that can only "start after" a known item makes next/prev/last
// navigation awkward: reaching page N needs the last item of page N-1, and the
// last page would need a walk over every page. pagenav hides this behind an
// Engine:
//   - the cursor cache keeps the continuation cursor of every visited page;
//   - the count estimator keeps a provable lower bound of the total and runs
//     at most one exact count at a time;
//   - the last page is fetched in one round trip by querying with all
//     orderings reversed and reversing the batch locally;
//   - every transition publishes exactly one immutable State snapshot.
//
// Key concepts
//   - Engine: the public surface (LoadPage, SetPageSize, SetQuery, SetFilter,
//     Refresh, Reset, UpdateTotalCount).
//   - Executor: the store capability the engine calls. GormExecutor is the
//     bundled implementation.
//   - Query: filters, orderings, start-after cursor and limit of one request.
//   - Cursor: DefaultCursor is a keyset cursor built through Getters from the
//     last item of a page; PseudoCursor is an OFFSET fallback.
//
// Keyset cursors require a deterministic ordering with at least one unique
// column, otherwise both forward cursors and the reversed last page may skip
// or repeat items.
package pagenav
