package main

import (
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/oxyromon/oxyromon/internal/settings"
)

// configCommand implements `config -l|-g KEY|-s KEY VALUE|-u KEY|-a KEY
// VALUE|-r KEY VALUE`, wiring straight onto internal/settings's
// Set/Append/Remove/Validate and the Store's raw key/value table.
var configCommand = &cli.Command{
	Name:  "config",
	Usage: "get or set a settings key",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "list", Aliases: []string{"l"}, Usage: "list every settings key and its value"},
		&cli.StringFlag{Name: "get", Aliases: []string{"g"}, Usage: "print one key's value"},
		&cli.StringSliceFlag{Name: "set", Aliases: []string{"s"}, Usage: "KEY VALUE"},
		&cli.StringFlag{Name: "unset", Aliases: []string{"u"}, Usage: "KEY"},
		&cli.StringSliceFlag{Name: "append", Aliases: []string{"a"}, Usage: "KEY VALUE, for list-valued keys"},
		&cli.StringSliceFlag{Name: "remove", Aliases: []string{"r"}, Usage: "KEY VALUE, for list-valued keys"},
	},
	Action: runConfig,
}

func runConfig(c *cli.Context) error {
	store, _, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := c.Context

	switch {
	case c.Bool("list"):
		raw, err := store.ListSettings(ctx)
		if err != nil {
			return err
		}
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Key", "Value"})
		for _, k := range settings.Keys {
			table.Append([]string{k, raw[k]})
		}
		table.Render()
		return nil

	case c.String("get") != "":
		key := c.String("get")
		value, ok, err := store.GetSetting(ctx, key)
		if err != nil {
			return err
		}
		if !ok {
			return userErrorf("config: %s is not set", key)
		}
		fmt.Println(value)
		return nil

	case c.IsSet("set"):
		args := c.StringSlice("set")
		if len(args) != 2 {
			return userErrorf("config -s expects KEY VALUE")
		}
		if err := settings.Set(ctx, store, args[0], args[1]); err != nil {
			return userError{err}
		}
		return nil

	case c.String("unset") != "":
		key := c.String("unset")
		if err := settings.Validate(key); err != nil {
			return userError{err}
		}
		return store.UnsetSetting(ctx, key)

	case c.IsSet("append"):
		args := c.StringSlice("append")
		if len(args) != 2 {
			return userErrorf("config -a expects KEY VALUE")
		}
		if err := settings.Append(ctx, store, args[0], args[1]); err != nil {
			return userError{err}
		}
		return nil

	case c.IsSet("remove"):
		args := c.StringSlice("remove")
		if len(args) != 2 {
			return userErrorf("config -r expects KEY VALUE")
		}
		if err := settings.Remove(ctx, store, args[0], args[1]); err != nil {
			return userError{err}
		}
		return nil
	}

	return cli.ShowCommandHelp(c, "config")
}
