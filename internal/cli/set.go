package cli

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/mydays/internal/audio"
	"github.com/roach88/mydays/internal/state"
)

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func newSetCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set",
		Short: "Show or change settings",
		Long: `Without a subcommand, show the current settings. Settings sync with
the tasks.

Example:
  mydays set
  mydays set sound kalimba
  mydays set color Health "#88c0a8"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()

			a.pull(commandContext(cmd))
			return a.out.Success(newSettingsView(a.state.Settings()))
		},
	}

	cmd.AddCommand(
		newSetValueCommand(rootOpts, "theme", "Set the colour theme", func(a *app, cmd *cobra.Command, v string) error {
			a.state.SetTheme(commandContext(cmd), v)
			return nil
		}),
		newSetValueCommand(rootOpts, "view", "Set the calendar view", func(a *app, cmd *cobra.Command, v string) error {
			v = strings.ToLower(v)
			if v != "week" && v != "month" {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid view %q (must be week or month)", v))
			}
			a.state.SetView(commandContext(cmd), v)
			return nil
		}),
		newSetValueCommand(rootOpts, "sound", "Set the completion sound and play it", func(a *app, cmd *cobra.Command, v string) error {
			v = strings.ToLower(v)
			if _, ok := audio.Lookup(v); !ok {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("unknown sound %q (one of %s)", v, strings.Join(audio.Keys(), ", ")))
			}
			a.state.SetSound(commandContext(cmd), v)
			if a.player != nil {
				a.player.Play(v)
			}
			return nil
		}),
		newSetColorCommand(rootOpts),
		newSetCustomThemeCommand(rootOpts),
	)
	return cmd
}

type setFunc func(a *app, cmd *cobra.Command, value string) error

func newSetValueCommand(rootOpts *RootOptions, name, short string, set setFunc) *cobra.Command {
	return &cobra.Command{
		Use:   name + " <value>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := commandContext(cmd)

			a.pull(ctx)
			before := a.state.Revision()
			if err := set(a, cmd, strings.TrimSpace(args[0])); err != nil {
				return err
			}
			if a.state.Revision() != before {
				a.push(ctx)
			}
			return a.out.Success(newSettingsView(a.state.Settings()))
		},
	}
}

func newSetColorCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "color <category> <#rrggbb>",
		Short: "Set the colour of a category, adding the category if it is new",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, color := strings.TrimSpace(args[0]), strings.ToLower(args[1])
			if name == "" {
				return NewExitError(ExitCommandError, "empty category name")
			}
			if !hexColor.MatchString(color) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid colour %q (want #rrggbb)", args[1]))
			}

			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := commandContext(cmd)

			a.pull(ctx)
			before := a.state.Revision()
			settings := a.state.Settings()
			if hasCategory(settings.Categories, name) {
				colors := settings.CategoryColors
				colors[name] = color
				a.state.SetCategoryColors(ctx, colors)
			} else {
				a.state.SetCategories(ctx, append(settings.Categories, state.Category{Name: name, Color: color}))
			}
			if a.state.Revision() != before {
				a.push(ctx)
			}
			return a.out.Success(newSettingsView(a.state.Settings()))
		},
	}
}

func hasCategory(cats []state.Category, name string) bool {
	for _, c := range cats {
		if c.Name == name {
			return true
		}
	}
	return false
}

func newSetCustomThemeCommand(rootOpts *RootOptions) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "custom-theme <name> [key=value...]",
		Short: "Save or delete a custom theme",
		Long: `Save a custom theme as a set of colour values, replacing any theme of the
same name, or delete it with --delete.

Example:
  mydays set custom-theme dusk bg=#1d1b26 accent=#e8807a
  mydays set custom-theme dusk --delete`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.TrimSpace(args[0])
			if name == "" {
				return NewExitError(ExitCommandError, "empty theme name")
			}
			theme := state.CustomTheme{}
			for _, kv := range args[1:] {
				k, v, ok := strings.Cut(kv, "=")
				if !ok || k == "" {
					return NewExitError(ExitCommandError, fmt.Sprintf("invalid theme value %q (want key=value)", kv))
				}
				theme[k] = v
			}
			if !remove && len(theme) == 0 {
				return NewExitError(ExitCommandError, "a custom theme needs at least one key=value")
			}

			a, err := openApp(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer a.Close()
			ctx := commandContext(cmd)

			a.pull(ctx)
			themes := a.state.Settings().CustomThemes
			if remove {
				if _, ok := themes[name]; !ok {
					return WrapExitError(ExitFailure, ErrCodeNotFound, fmt.Sprintf("no custom theme %q", name), nil)
				}
				delete(themes, name)
			} else {
				themes[name] = theme
			}
			a.state.SetCustomThemes(ctx, themes)
			a.push(ctx)
			return a.out.Success(newSettingsView(a.state.Settings()))
		},
	}
	cmd.Flags().BoolVar(&remove, "delete", false, "delete the theme")
	return cmd
}
