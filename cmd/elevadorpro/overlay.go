package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"elevadorpro/internal/export"
	"elevadorpro/pkg/domain"
)

func newOverlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "overlay",
		Short: "Inspect and reset local edits",
	}

	show := &cobra.Command{
		Use:   "show <collection>",
		Short: "Print the stored overlay entries, or the merged view with --merged",
		Args:  cobra.ExactArgs(1),
		RunE:  runOverlayShow,
	}
	show.Flags().Bool("merged", false, "print seed and overlay merged")
	cmd.AddCommand(show)

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Discard every local edit",
		Args:  cobra.NoArgs,
		RunE:  runOverlayReset,
	}
	reset.Flags().Bool("yes", false, "confirm the reset")
	cmd.AddCommand(reset)

	exp := &cobra.Command{
		Use:   "export <collection>",
		Short: "Write the merged collection as CSV or XLSX",
		Args:  cobra.ExactArgs(1),
		RunE:  runOverlayExport,
	}
	exp.Flags().String("format", "csv", `output format ("csv", "xlsx")`)
	exp.Flags().StringP("output", "o", "", "output file (default stdout)")
	cmd.AddCommand(exp)
	return cmd
}

func runOverlayShow(cmd *cobra.Command, args []string) error {
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

	if merged, _ := cmd.Flags().GetBool("merged"); merged {
		recs, err := a.svc.List(ctx, c)
		if err != nil {
			return err
		}
		return printJSON(cmd, recs)
	}
	raw, err := a.local.Raw(ctx, c)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return fmt.Errorf("overlay %s holds invalid JSON: %w", a.local.Key(c), err)
	}
	out.WriteByte('\n')
	_, err = out.WriteTo(cmd.OutOrStdout())
	return err
}

func runOverlayReset(cmd *cobra.Command, _ []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return errors.New("refusing to discard local edits without --yes")
	}
	ctx := cmd.Context()
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.engine.ResetOverlay(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "overlay reset")
	return nil
}

func runOverlayExport(cmd *cobra.Command, args []string) error {
	c, err := domain.ParseCollection(args[0])
	if err != nil {
		return err
	}
	name, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(name)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	a, err := openApp(ctx, cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	recs, err := a.svc.List(ctx, c)
	if err != nil {
		return err
	}
	var hidden []string
	if c == domain.CollectionUsers {
		hidden = []string{"senha"}
	}

	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		return export.Write(cmd.OutOrStdout(), format, c, recs, hidden...)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := export.Write(f, format, c, recs, hidden...); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%d %s records written to %s\n", len(recs), c, path)
	return nil
}
