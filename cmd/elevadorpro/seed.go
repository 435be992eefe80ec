package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"elevadorpro/internal/seedstore"
	"elevadorpro/pkg/domain"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Inspect and publish factory seed datasets",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List seed datasets and their record counts",
		Args:  cobra.NoArgs,
		RunE:  runSeedList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <collection>",
		Short: "Print the seed records of a collection",
		Args:  cobra.ExactArgs(1),
		RunE:  runSeedShow,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "publish <dir>",
		Short: "Upload <collection>.json files from dir into the seed source",
		Args:  cobra.ExactArgs(1),
		RunE:  runSeedPublish,
	})
	return cmd
}

func runSeedList(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "COLLECTION\tKEY\tRECORDS")
	for _, c := range domain.Collections() {
		recs, err := a.seeds.Read(ctx, c)
		count := fmt.Sprint(len(recs))
		if err != nil {
			count = "unavailable: " + rootCause(err).Error()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", c, a.seeds.Key(c), count)
	}
	return w.Flush()
}

func runSeedShow(cmd *cobra.Command, args []string) error {
	c, err := domain.ParseCollection(args[0])
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	recs, err := a.seeds.Read(ctx, c)
	if err != nil {
		return err
	}
	return printJSON(cmd, recs)
}

func runSeedPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	published := 0
	for _, c := range domain.Collections() {
		path := filepath.Join(args[0], c.SeedFile())
		raw, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return err
		}
		var recs []domain.Record
		if err := json.Unmarshal(raw, &recs); err != nil {
			return fmt.Errorf("%s: seed file must hold a JSON array of records: %w", path, err)
		}
		key := a.seeds.Key(c)
		if _, err := a.source.Put(ctx, key, bytes.NewReader(raw), seedstore.ContentTypeJSON); err != nil {
			return fmt.Errorf("publish %s: %w", key, err)
		}
		a.log.Info("seed published", "collection", c, "key", key, "records", len(recs))
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %d records -> %s\n", c, len(recs), key)
		published++
	}
	if published == 0 {
		return fmt.Errorf("no seed files found in %s", args[0])
	}
	a.seeds.Reset()
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func rootCause(err error) error {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err
		}
		err = next
	}
}
