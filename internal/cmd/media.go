package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/MeKo-Tech/phonix/internal/composite"
	"github.com/MeKo-Tech/phonix/internal/edit"
	"github.com/MeKo-Tech/phonix/internal/media"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var mediaCmd = &cobra.Command{
	Use:   "media",
	Short: "Manage the local media gallery",
}

var mediaListCmd = &cobra.Command{
	Use:   "list",
	Short: "List gallery items by tag or search query",
	Args:  cobra.NoArgs,
	RunE:  runMediaList,
}

var mediaImportCmd = &cobra.Command{
	Use:   "import <image>...",
	Short: "Import existing images into the gallery",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMediaImport,
}

var mediaGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Write a gallery item to a file",
	Args:  cobra.ExactArgs(1),
	RunE:  runMediaGet,
}

var mediaDeleteCmd = &cobra.Command{
	Use:   "delete <id>...",
	Short: "Delete gallery items",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runMediaDelete,
}

func init() {
	rootCmd.AddCommand(mediaCmd)
	mediaCmd.AddCommand(mediaListCmd, mediaImportCmd, mediaGetCmd, mediaDeleteCmd)

	mediaCmd.PersistentFlags().String("db", "", "Media database path (defaults to <data-dir>/media.db)")
	if err := viper.BindPFlag("media.db", mediaCmd.PersistentFlags().Lookup("db")); err != nil {
		panic(fmt.Sprintf("failed to bind flag: %v", err))
	}

	mediaListCmd.Flags().String("tag", media.GalleryTag, "Exact tag to list")
	mediaListCmd.Flags().StringP("query", "q", "", "Case-insensitive tag substring search (overrides --tag)")
	mediaListCmd.Flags().Bool("json", false, "Print JSON")
	bindFlags(mediaListCmd, "media.list", "tag", "query", "json")

	mediaImportCmd.Flags().String("owner", "local", "Owner recorded for imported items")
	mediaImportCmd.Flags().StringSlice("tag", nil, "Tags for imported items (repeatable)")
	bindFlags(mediaImportCmd, "media.import", "owner", "tag")

	mediaGetCmd.Flags().StringP("out", "o", "", "Output file (defaults to the stored filename)")
	bindFlags(mediaGetCmd, "media.get", "out")
}

func runMediaList(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	store, err := openStore(viper.GetString("media.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	var items []media.Metadata
	if q := viper.GetString("media.list.query"); q != "" {
		items, err = store.Search(ctx, q)
	} else {
		items, err = store.ByTag(ctx, viper.GetString("media.list.tag"))
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if viper.GetBool("media.list.json") {
		return writeJSON(out, items)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tFILENAME\tOWNER\tSIZE\tTAGS\tFILTERS\tCREATED")
	for _, m := range items {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Filename, m.Owner,
			humanize.Bytes(uint64(m.Size)),
			strings.Join(m.Tags, ","),
			strings.Join(m.FiltersApplied, ","),
			humanize.Time(m.CreatedAt),
		)
	}
	return tw.Flush()
}

func runMediaImport(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	store, err := openStore(viper.GetString("media.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	tags := edit.NormalizeTags(viper.GetStringSlice("media.import.tag"))
	owner := viper.GetString("media.import.owner")

	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}
		src, err := composite.DecodeBytes(data)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}

		meta := media.Metadata{
			ID:               uuid.NewString(),
			Filename:         filepath.Base(path),
			Owner:            owner,
			ContentType:      http.DetectContentType(data),
			Tags:             tags,
			FiltersApplied:   []string{},
			AREffectsApplied: []string{},
			CreatedAt:        time.Now(),
		}
		ref, err := store.Submit(context.Background(), data, meta)
		if err != nil {
			return err
		}
		logger.Info("Imported image", "path", path, "id", ref.ID, "format", src.Format, "width", src.Width, "height", src.Height)
		fmt.Fprintln(cmd.OutOrStdout(), ref.ID)
	}
	return nil
}

func runMediaGet(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	store, err := openStore(viper.GetString("media.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	data, meta, err := store.Fetch(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("media %s: %w", args[0], err)
	}

	out := viper.GetString("media.get.out")
	if out == "" {
		out = strings.ReplaceAll(meta.Filename, ":", "-")
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", out, err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

func runMediaDelete(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}
	store, err := openStore(viper.GetString("media.db"))
	if err != nil {
		return err
	}
	defer store.Close()

	for _, id := range args {
		if err := store.Delete(context.Background(), id); err != nil {
			return fmt.Errorf("media %s: %w", id, err)
		}
		logger.Info("Deleted media", "id", id)
	}
	return nil
}
