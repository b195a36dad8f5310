package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sennetconsortium/senotype-editor/modules/senotype/infrastructure/persistence"
	"github.com/sennetconsortium/senotype-editor/modules/senotype/services"
	"github.com/sennetconsortium/senotype-editor/pkg/editor"
)

type treeOptions struct {
	email string
	json  bool
}

func newTreeCmd() *cobra.Command {
	var opts treeOptions
	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Print the senotype version forest",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := loadConfig()
			if err != nil {
				return err
			}
			defer conf.Unload()
			ctx := cmd.Context()
			db, err := openDB(ctx, conf)
			if err != nil {
				return err
			}
			defer db.Close()

			all, err := persistence.NewSenlibRepository(db).All(ctx)
			if err != nil {
				return withCode(exitDB, err)
			}
			tree := services.BuildTree(all, opts.email, "")
			if opts.json {
				return writeJSONLine(cmd.OutOrStdout(), tree)
			}
			printTree(cmd.OutOrStdout(), tree, 0)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.email, "email", "", "mark the nodes this submitter may edit")
	cmd.Flags().BoolVar(&opts.json, "json", false, "print the tree as JSON")
	return cmd
}

func printTree(w io.Writer, nodes []editor.NodeSnapshot, depth int) {
	for _, n := range nodes {
		var flags []string
		if n.Published {
			flags = append(flags, "published")
		}
		if n.Authorized && n.ID != editor.NewNodeID {
			flags = append(flags, "yours")
		}
		line := strings.Repeat("  ", depth) + n.Text
		if len(flags) > 0 {
			line += " [" + strings.Join(flags, ", ") + "]"
		}
		fmt.Fprintln(w, line)
		printTree(w, n.Children, depth+1)
	}
}
