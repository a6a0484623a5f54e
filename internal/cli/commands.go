package cli

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/celerix-dev/celerix-compliance/pkg/query"
	"github.com/celerix-dev/celerix-compliance/pkg/sdk"
)

func newPingCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the daemon answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(s sdk.PortalStore) error {
				if err := s.Ping(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "PONG")
				return nil
			})
		},
	}
}

func newDatasetsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "datasets",
		Short: "List the datasets served by the daemon",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(s sdk.PortalStore) error {
				names, err := s.Datasets()
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return printJSON(cmd.OutOrStdout(), names)
				}
				fmt.Fprintln(cmd.OutOrStdout(), strings.Join(names, "\n"))
				return nil
			})
		},
	}
}

// queryFlags are the filter flags shared by list and stats.
type queryFlags struct {
	search string
	equals map[string]string
	anyOf  map[string]string
	flags  map[string]string
}

func (f *queryFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.search, "search", "q", "", "case-insensitive text search")
	cmd.Flags().StringToStringVar(&f.equals, "eq", nil, "exact match, field=value")
	cmd.Flags().StringToStringVar(&f.anyOf, "any", nil, "match any of a semicolon-separated list, field=a;b")
	cmd.Flags().StringToStringVar(&f.flags, "flag", nil, "boolean match, field=true|false")
}

func (f *queryFlags) query() (query.Query, error) {
	q := query.Query{Search: f.search}
	if len(f.equals) > 0 {
		q.Equals = f.equals
	}
	if len(f.anyOf) > 0 {
		q.AnyOf = make(map[string][]string, len(f.anyOf))
		for field, list := range f.anyOf {
			for _, v := range strings.Split(list, ";") {
				if v = strings.TrimSpace(v); v != "" {
					q.AnyOf[field] = append(q.AnyOf[field], v)
				}
			}
		}
	}
	if len(f.flags) > 0 {
		q.Flags = make(map[string]bool, len(f.flags))
		for field, v := range f.flags {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return query.Query{}, fmt.Errorf("--flag %s: %w", field, err)
			}
			q.Flags[field] = b
		}
	}
	return q, nil
}

func newListCommand(opts *RootOptions) *cobra.Command {
	var (
		qf         queryFlags
		sortField  string
		dir        string
		page, size int
	)
	cmd := &cobra.Command{
		Use:   "list <dataset>",
		Short: "List one page of filtered, sorted records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.query()
			if err != nil {
				return err
			}
			req := sdk.Request{Query: q, Page: page, Size: size}
			if sortField != "" {
				req.Sort = query.SortState{Field: sortField, Dir: query.ParseDirection(dir)}
			}
			return withStore(opts, func(s sdk.PortalStore) error {
				res, err := sdk.List[map[string]any](s, args[0], req)
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return printJSON(cmd.OutOrStdout(), res)
				}
				return printPage(cmd, res)
			})
		},
	}
	qf.register(cmd)
	cmd.Flags().StringVar(&sortField, "sort", "", "sort field")
	cmd.Flags().StringVar(&dir, "dir", "desc", "sort direction (asc|desc)")
	cmd.Flags().IntVar(&page, "page", 1, "page number")
	cmd.Flags().IntVar(&size, "size", query.DefaultPageSize, "page size")
	return cmd
}

// labelFields are tried in order for the text listing.
var labelFields = []string{"title", "description"}

func printPage(cmd *cobra.Command, res sdk.Result[map[string]any]) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, item := range res.Items {
		label := ""
		for _, f := range labelFields {
			if v, ok := item[f].(string); ok && v != "" {
				label = v
				break
			}
		}
		fmt.Fprintf(tw, "%v\t%s\n", item["id"], label)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "page %d/%d, %d records\n", res.Page.Page, res.TotalPages, res.Total)
	return nil
}

func newGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <dataset> <id>",
		Short: "Show one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(s sdk.PortalStore) error {
				raw, err := s.Get(args[0], args[1])
				if err != nil {
					return err
				}
				var v any
				if err := json.Unmarshal(raw, &v); err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), v)
			})
		},
	}
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	var qf queryFlags
	cmd := &cobra.Command{
		Use:   "stats <dataset>",
		Short: "Summarize the records matching the filters",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := qf.query()
			if err != nil {
				return err
			}
			return withStore(opts, func(s sdk.PortalStore) error {
				stats, err := s.Stats(args[0], q)
				if err != nil {
					return err
				}
				if opts.Format == "json" {
					return printJSON(cmd.OutOrStdout(), stats)
				}
				return printStats(cmd, stats)
			})
		},
	}
	qf.register(cmd)
	return cmd
}

func printStats(cmd *cobra.Command, s query.Stats) error {
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "total %d, matching %d, pending %d, overdue %d\n", s.Total, s.Matching, s.Pending, s.Overdue)
	fields := make([]string, 0, len(s.Groups))
	for f := range s.Groups {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		values := make([]string, 0, len(s.Groups[f]))
		for v := range s.Groups[f] {
			values = append(values, v)
		}
		sort.Strings(values)
		fmt.Fprintf(w, "%s:\n", f)
		for _, v := range values {
			t := s.Groups[f][v]
			fmt.Fprintf(w, "  %s\t%d/%d\n", v, t.Matching, t.Total)
		}
	}
	return nil
}

func newDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <dataset> <id>",
		Short: "Delete one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(opts, func(s sdk.PortalStore) error {
				if err := s.Delete(args[0], args[1]); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "OK")
				return nil
			})
		},
	}
}
