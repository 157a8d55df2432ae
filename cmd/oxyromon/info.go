package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/oxyromon/oxyromon/internal/sorter"
)

// infoCommand lists every System and its cached completion rollup,
// generalized from bodgit-rom/cmd/rom/main.go's `info` (which tables one
// archive's member digests) to tabling the catalog's Systems instead.
var infoCommand = &cli.Command{
	Name:   "info",
	Usage:  "list systems and their completion status",
	Action: runInfo,
}

func runInfo(c *cli.Context) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	systems, err := store.ListSystems(c.Context)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetBorder(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"System", "Directory", "Merging", "Completion"})

	for _, sys := range systems {
		games, err := store.GamesOfSystem(c.Context, sys.ID)
		if err != nil {
			return err
		}
		table.Append([]string{
			sys.Name,
			sorter.SystemDir(sys),
			string(sys.Merging),
			fmt.Sprintf("%s (%d games)", sys.Completion, len(games)),
		})
	}

	table.Render()
	return nil
}
