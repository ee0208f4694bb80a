package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"

	"github.com/Alp4ka/pagenav"
)

// Row is one table row keyed by column name.
type Row = map[string]any

const sessionHelp = `commands:
  n, next          next page
  p, prev          previous page
  f, first         first page
  l, last          last page
  r, refresh       reload the current page and recount
  reset            back to page 1 with a fresh state
  size N           set the page size
  sort COL DIR,..  replace the orderings, e.g. "sort name asc,id asc"
  where FILTER     add a filter, e.g. "where status = done"
  clear            drop all filters
  count            recount the rows
  stats            show store round trips
  q, quit          leave
`

// session drives an Engine from line based commands.
type session struct {
	engine  *pagenav.Engine[Row]
	getters pagenav.Getters[Row]
	reg     prometheus.Gatherer
	out     io.Writer
}

func newSession(exec pagenav.Executor[Row], cfg pagenav.Config, reg prometheus.Gatherer, out io.Writer, opts ...pagenav.Option) *session {
	s := &session{
		getters: pagenav.Getters[Row]{},
		reg:     reg,
		out:     out,
	}

	s.engine = pagenav.NewEngine(exec, s.getters, opts...)
	s.engine.Initialize(cfg)
	s.addGetters(s.engine.Config().OrderBy)

	return s
}

func (s *session) addGetters(orderings pagenav.Orderings) {
	for _, o := range orderings {
		column := o.Column
		s.getters[column] = func(row Row) any {
			return row[column]
		}
	}
}

// run loads the first page and then executes commands from in until it is
// exhausted or a quit command is read.
func (s *session) run(ctx context.Context, in io.Reader) error {
	if err := s.engine.LoadPage(ctx, pagenav.PageFirst); err != nil {
		return err
	}
	s.render()

	scanner := bufio.NewScanner(in)
	for s.prompt(); scanner.Scan(); s.prompt() {
		quit, err := s.exec(ctx, strings.TrimSpace(scanner.Text()))
		if err != nil {
			fmt.Fprintf(s.out, "error: %v\n", err)
		}
		if quit {
			return nil
		}
	}

	return scanner.Err()
}

func (s *session) prompt() {
	fmt.Fprint(s.out, "> ")
}

// exec runs one command line. quit is set when the session should end.
func (s *session) exec(ctx context.Context, line string) (quit bool, err error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "":
		return false, nil
	case "n", "next":
		err = s.engine.LoadPage(ctx, pagenav.PageNext)
	case "p", "prev":
		err = s.engine.LoadPage(ctx, pagenav.PagePrev)
	case "f", "first":
		err = s.engine.LoadPage(ctx, pagenav.PageFirst)
	case "l", "last":
		err = s.engine.LoadPage(ctx, pagenav.PageLast)
	case "r", "refresh":
		err = s.engine.Refresh(ctx)
	case "reset":
		err = s.engine.Reset(ctx)
	case "size":
		limit, convErr := strconv.Atoi(arg)
		if convErr != nil {
			return false, fmt.Errorf("invalid page size '%s'", arg)
		}
		err = s.engine.SetPageSize(ctx, limit)
	case "sort":
		orderings, parseErr := pagenav.ParseSort(splitList(arg), nil)
		if parseErr != nil {
			return false, parseErr
		}
		cfg := s.engine.Config()
		if orderings.Equal(cfg.OrderBy) {
			fmt.Fprintln(s.out, "ordering unchanged")
			return false, nil
		}
		s.addGetters(orderings)
		err = s.engine.SetQuery(ctx, cfg.Where, orderings)
	case "where":
		filters, parseErr := pagenav.ParseWhere([]string{arg}, nil)
		if parseErr != nil {
			return false, parseErr
		}
		err = s.engine.SetFilter(ctx, append(s.engine.Config().Where, filters...))
	case "clear":
		err = s.engine.SetFilter(ctx, nil)
	case "count":
		if err = s.engine.UpdateTotalCount(ctx, true); err != nil {
			return false, err
		}
		fmt.Fprintf(s.out, "total: %d\n", s.engine.Total())
		return false, nil
	case "stats":
		return false, s.printStats()
	case "h", "help", "?":
		fmt.Fprint(s.out, sessionHelp)
		return false, nil
	case "q", "quit", "exit":
		return true, nil
	default:
		return false, fmt.Errorf("unknown command '%s', type help for the list", name)
	}

	if err != nil && !errors.Is(err, pagenav.ErrSuperseded) {
		return false, err
	}
	s.render()

	return false, nil
}

func splitList(s string) []string {
	return lo.FilterMap(strings.Split(s, ","), func(part string, _ int) (string, bool) {
		part = strings.TrimSpace(part)
		return part, part != ""
	})
}

func (s *session) render() {
	st := s.engine.State()

	total := strconv.FormatInt(st.Total, 10)
	if !st.TotalExact {
		total = ">=" + total
	}
	fmt.Fprintf(s.out, "page %d/%d, total %s, more: %t\n", st.Page, st.TotalPages(), total, st.HasMore)

	if len(st.Items) == 0 {
		fmt.Fprintln(s.out, "(no rows)")
		return
	}

	columns := lo.Uniq(lo.FlatMap(st.Items, func(row Row, _ int) []string {
		return lo.Keys(row)
	}))
	slices.Sort(columns)

	w := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(columns, "\t"))
	for _, row := range st.Items {
		cells := lo.Map(columns, func(column string, _ int) string {
			return formatCell(row[column])
		})
		fmt.Fprintln(w, strings.Join(cells, "\t"))
	}
	_ = w.Flush()
}

func formatCell(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

// printStats prints every counter and the sample count of every histogram
// gathered from the session registry.
func (s *session) printStats() error {
	if s.reg == nil {
		return errors.New("metrics are disabled")
	}

	families, err := s.reg.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, family := range families {
		for _, m := range family.GetMetric() {
			labels := make([]string, 0, len(m.GetLabel()))
			for _, l := range m.GetLabel() {
				labels = append(labels, l.GetName()+"="+l.GetValue())
			}
			name := family.GetName()
			if len(labels) > 0 {
				name += "{" + strings.Join(labels, ",") + "}"
			}

			switch {
			case m.GetCounter() != nil:
				fmt.Fprintf(s.out, "%s %g\n", name, m.GetCounter().GetValue())
			case m.GetHistogram() != nil:
				fmt.Fprintf(s.out, "%s count=%d\n", name, m.GetHistogram().GetSampleCount())
			}
		}
	}

	return nil
}
