package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/xxxsen/csvsearch/internal/csvfile"
	"github.com/xxxsen/csvsearch/internal/history"
	"github.com/xxxsen/csvsearch/internal/indexname"
	"github.com/xxxsen/csvsearch/internal/model"
	"github.com/xxxsen/csvsearch/internal/service"
	"github.com/xxxsen/csvsearch/internal/session"
)

func withApp(configPath string, fn func(ctx context.Context, a *app) error) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(context.Background(), a)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newSessionCmd() *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:   "session",
		Short: "session token helpers",
	}
	sessionCmd.AddCommand(&cobra.Command{
		Use:   "new",
		Short: "print a fresh session token",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), session.NewToken())
			return nil
		},
	})
	return sessionCmd
}

func newIngestCmd(configPath *string) *cobra.Command {
	var (
		token   string
		name    string
		file    string
		replace bool
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "index a csv file into a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}
			if name == "" {
				name = strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
			}
			id, err := indexname.Resolve(token, name)
			if err != nil {
				return err
			}
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open csv: %w", err)
			}
			defer f.Close()
			table, err := csvfile.Parse(f)
			if err != nil {
				return err
			}
			return withApp(*configPath, func(ctx context.Context, a *app) error {
				result, err := a.ingest.Upload(ctx, id, table, service.IngestOptions{ReplaceExisting: replace})
				if result != nil {
					result.Filename = filepath.Base(file)
					if perr := printJSON(cmd.OutOrStdout(), result); perr != nil {
						return perr
					}
				}
				return err
			})
		},
	}
	cmd.Flags().StringVar(&token, "session", "", "session token")
	cmd.Flags().StringVar(&name, "name", "", "index name, defaults to the file name")
	cmd.Flags().StringVar(&file, "file", "", "csv file to index")
	cmd.Flags().BoolVar(&replace, "replace", false, "drop an existing index of the same name first")
	return cmd
}

func newSearchCmd(configPath *string) *cobra.Command {
	var (
		token string
		req   model.SearchRequest
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "run a full-text query against a session index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app) error {
				resp, err := a.search.Search(ctx, token, req)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), resp)
			})
		},
	}
	cmd.Flags().StringVar(&token, "session", "", "session token")
	cmd.Flags().StringVar(&req.IndexName, "index", "", "index name")
	cmd.Flags().StringVar(&req.QueryText, "query", "", "query text")
	cmd.Flags().IntVar(&req.ResultSize, "size", 0, "maximum number of hits")
	cmd.Flags().StringSliceVar(&req.AggregationFields, "agg", nil, "text columns to aggregate")
	return cmd
}

func newIndicesCmd(configPath *string) *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "indices",
		Short: "list the indices of a session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app) error {
				entries, err := a.catalog.List(ctx, token)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), entries)
			})
		},
	}
	cmd.Flags().StringVar(&token, "session", "", "session token")
	return cmd
}

func newShellCmd(configPath *string) *cobra.Command {
	var (
		token string
		index string
	)
	cmd := &cobra.Command{
		Use:   "shell",
		Short: "interactive search against one index",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(*configPath, func(ctx context.Context, a *app) error {
				sh := &shell{
					search:  a.search,
					token:   token,
					index:   index,
					history: history.New(history.DefaultCapacity),
					out:     cmd.OutOrStdout(),
				}
				return sh.loop(ctx, cmd.InOrStdin())
			})
		},
	}
	cmd.Flags().StringVar(&token, "session", "", "session token")
	cmd.Flags().StringVar(&index, "index", "", "index name")
	return cmd
}

type searcher interface {
	Search(ctx context.Context, token string, req model.SearchRequest) (*model.SearchResponse, error)
}

type shell struct {
	search  searcher
	token   string
	index   string
	history *history.History
	out     io.Writer
}

const shellHelp = `commands:
  :history       show recent searches
  :index <name>  switch index
  :quit          leave the shell
anything else is searched`

func (s *shell) loop(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	fmt.Fprintln(s.out, shellHelp)
	for {
		fmt.Fprintf(s.out, "%s> ", s.index)
		if !scanner.Scan() {
			fmt.Fprintln(s.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "":
			continue
		case line == ":quit" || line == ":q":
			return nil
		case line == ":history":
			s.printHistory()
		case line == ":help":
			fmt.Fprintln(s.out, shellHelp)
		case strings.HasPrefix(line, ":index"):
			s.index = strings.TrimSpace(strings.TrimPrefix(line, ":index"))
		default:
			s.run(ctx, line)
		}
	}
}

func (s *shell) run(ctx context.Context, text string) {
	resp, err := s.search.Search(ctx, s.token, model.SearchRequest{IndexName: s.index, QueryText: text})
	if err != nil {
		fmt.Fprintf(s.out, "error: %v\n", err)
		return
	}
	s.history.Add(history.Entry{
		Query:   text,
		Index:   s.index,
		Time:    time.Duration(resp.SearchTimeSeconds * float64(time.Second)),
		Results: resp.TotalResults,
	})
	fmt.Fprintf(s.out, "%d results in %.3fs\n", resp.TotalResults, resp.SearchTimeSeconds)
	for i, hit := range resp.Results {
		fmt.Fprintf(s.out, "%2d. [%.3f] %s\n", i+1, hit.Score, formatSource(hit.Source))
	}
}

func (s *shell) printHistory() {
	entries := s.history.Recent()
	if len(entries) == 0 {
		fmt.Fprintln(s.out, "no searches yet")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(s.out, "%s  %-20s %-30q %5d results  %s\n",
			e.Timestamp.Format("15:04:05"), e.Index, e.Query, e.Results, e.Time.Round(time.Millisecond))
	}
}

func formatSource(src map[string]any) string {
	keys := make([]string, 0, len(src))
	for k := range src {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, src[k]))
	}
	return strings.Join(parts, " ")
}
