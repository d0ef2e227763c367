package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"axonspread/pkg/report"
	"axonspread/pkg/store"
)

// HistoryCmd lists analyses stored in the results database.
type HistoryCmd struct {
	Database string `name:"db" help:"SQLite results database (defaults to the configuration)" type:"path"`
	Image    string `name:"image" help:"Only show analyses of this stack"`
	RunID    string `name:"run" help:"Show one analysis as JSON"`
}

func (c *HistoryCmd) Run(g *Globals) error {
	cfg, err := g.loadConfig()
	if err != nil {
		return err
	}
	path := c.Database
	if path == "" {
		path = cfg.Output.Database
	}
	if path == "" {
		return fmt.Errorf("no results database configured (use --db or output.database)")
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("results database: %w", err)
	}

	ctx := context.Background()
	db, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()

	if c.RunID != "" {
		record, err := db.Get(ctx, c.RunID)
		if err != nil {
			return err
		}
		return report.WriteJSON(os.Stdout, record)
	}

	records, err := db.List(ctx, c.Image)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tCREATED\tIMAGE\tX [µm]\tY [µm]\tZ [µm]\tVOLUME")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f\t%.2f\t%.2f\n",
			r.RunID, r.CreatedAt.Format("2006-01-02 15:04:05"), r.ImageName,
			r.Result.SpreadXUm, r.Result.SpreadYUm, r.Result.SpreadZUm, r.Result.AxonalVolume)
	}
	return w.Flush()
}
