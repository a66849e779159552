package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/Corpus-Retrieval-Engine/internal/searcher/handler"
	"github.com/spf13/cobra"
)

var (
	queryText  string
	queryLimit int
	jsonOut    bool
	termPrefix string
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Rank documents for a free-text query",
	Long: `Run the query through the same extractors as the corpus and rank the
matching documents with BM25.

Examples:
  irengine search -q "Federal Reserve interest rates"
  irengine search -q "gold prices" --stem -n 10`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if strings.TrimSpace(queryText) == "" {
			return fmt.Errorf("query is required (use -q)")
		}
		s := openSinks(cmd.Context())
		defer s.Close()
		st := newSearchStack(s, nil)

		query := st.executor.Prepare(queryText)
		compute := func() (*executor.Result, error) {
			return st.executor.ExecuteQuery(cmd.Context(), queryText, query)
		}
		var (
			res *executor.Result
			hit bool
			err error
		)
		if st.cache != nil && len(query) > 0 {
			res, hit, err = st.cache.GetOrCompute(cmd.Context(), cfg.Indexer.Stemming, query, compute)
		} else {
			res, err = compute()
		}
		if err != nil {
			return err
		}
		if queryLimit > 0 && len(res.Results) > queryLimit {
			res.Results = res.Results[:queryLimit]
		}
		if jsonOut {
			return writeJSON(res)
		}
		fmt.Printf("Query: %s (%d terms, %d candidates, cached=%t)\n", res.Query, len(res.Terms), res.TotalHits, hit)
		for i, d := range res.Results {
			fmt.Printf("%3d. %-24s %.4f\n", i+1, d.DocID, d.Score)
		}
		return nil
	},
}

var rankCmd = &cobra.Command{
	Use:   "rank <request.json>",
	Short: "Rank documents for explicit postings and query weights",
	Long: `Read {"postings": {term: "doc#tf#parser;..."}, "query": {term: "tf#weight"}}
from a file ("-" for stdin) and print the ranked document ids.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req handler.RankRequest
		in := os.Stdin
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("opening request: %w", err)
			}
			defer f.Close()
			in = f
		}
		if err := json.NewDecoder(in).Decode(&req); err != nil {
			return fmt.Errorf("decoding request: %w", err)
		}
		st := newSearchStack(&sinks{}, nil)
		ranked, err := st.ranker.RankDocuments(cmd.Context(), nil, req.Postings, req.Query)
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(handler.RankResponse{Results: ranked})
		}
		for _, d := range ranked {
			fmt.Println(d.DocID)
		}
		return nil
	},
}

var entitiesCmd = &cobra.Command{
	Use:   "entities <doc-id>",
	Short: "Rank the named entities of one document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st := newSearchStack(&sinks{}, nil)
		ranked, err := st.ranker.RankEntities(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(handler.EntitiesResponse{DocID: args[0], Entities: ranked})
		}
		for _, e := range ranked {
			fmt.Printf("%-32s %.4f\n", e.Entity, e.Score)
		}
		return nil
	},
}

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "List dictionary terms with their total frequency",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st := newSearchStack(&sinks{}, nil)
		if err := st.dict.Load(cfg.Indexer.Stemming); err != nil {
			return err
		}
		all := st.dict.Terms()
		terms := st.dict.SortedTerms(termPrefix)
		if queryLimit > 0 && len(terms) > queryLimit {
			terms = terms[:queryLimit]
		}
		if jsonOut {
			out := make([]handler.TermFrequency, 0, len(terms))
			for _, t := range terms {
				out = append(out, handler.TermFrequency{Term: t, Frequency: all[t]})
			}
			return writeJSON(out)
		}
		for _, t := range terms {
			fmt.Printf("%-40s %d\n", t, all[t])
		}
		fmt.Printf("\n%d of %d terms\n", len(terms), st.dict.CorpusSize())
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVarP(&queryText, "query", "q", "", "query text")
	for _, c := range []*cobra.Command{searchCmd, termsCmd} {
		c.Flags().IntVarP(&queryLimit, "limit", "n", 0, "maximum results to print")
	}
	termsCmd.Flags().StringVar(&termPrefix, "prefix", "", "only terms with this prefix")
	for _, c := range []*cobra.Command{searchCmd, rankCmd, entitiesCmd, termsCmd} {
		c.Flags().BoolVar(&jsonOut, "json", false, "print JSON")
	}
	rootCmd.AddCommand(searchCmd, rankCmd, entitiesCmd, termsCmd)
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
