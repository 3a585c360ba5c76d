package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/tannerfalls/playlistdb/internal/query"
	"github.com/tannerfalls/playlistdb/internal/shared"
	"github.com/urfave/cli/v3"
)

// Query translates a free-text description into a playlist search and prints
// the ranked matches.
func (r *Runner) Query(ctx context.Context, cmd *cli.Command) error {
	text := cmd.StringArg("text")
	if text == "" {
		return fmt.Errorf("%w: query text", shared.ErrMissingArgument)
	}

	limit := int(cmd.Int("limit"))
	if limit < 0 {
		return fmt.Errorf("%w: --limit must not be negative", shared.ErrInvalidFlag)
	}

	config := r.loadConfig(cmd)

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := query.NewSearcher(db, r.logger)
	if err != nil {
		return fmt.Errorf("failed to build searcher: %w", err)
	}

	matches, filter, err := searcher.Search(ctx, text, limit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{
			"query":   text,
			"filter":  filter,
			"matches": matches,
		}, cmd.Bool("pretty"))
	}

	if len(filter.Artists) > 0 {
		r.writePlain("Artists: %s\n", strings.Join(filter.Artists, ", "))
	}
	if len(filter.Genres) > 0 {
		r.writePlain("Genres: %s\n", strings.Join(filter.Genres, ", "))
	}
	for _, feature := range query.QueryFeatures {
		switch filter.Features[feature] {
		case 1:
			r.writePlain("Feature: high %s\n", feature)
		case -1:
			r.writePlain("Feature: low %s\n", feature)
		}
	}

	if len(matches) == 0 {
		r.writePlain("No playlists matched.\n")
		return nil
	}

	for i, m := range matches {
		r.writePlain("%2d. [%d] %s\n", i+1, m.PID, m.Name)
	}
	return nil
}
