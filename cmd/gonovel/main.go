/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"gonovel/internal/asset"
	"gonovel/internal/character"
	"gonovel/internal/command"
	"gonovel/internal/config"
	"gonovel/internal/crash"
	"gonovel/internal/dialogue"
	"gonovel/internal/domain"
	"gonovel/internal/engine"
	"gonovel/internal/export"
	"gonovel/internal/host"
	applog "gonovel/internal/log"
	"gonovel/internal/render"
	"gonovel/internal/script"
	"gonovel/internal/storage"
	"gonovel/internal/telemetry"
	"gonovel/internal/textlayout"
	"gonovel/internal/version"
)

// errUsage marks bad arguments; main exits with code 2 for it.
var errUsage = errors.New("usage")

func usage(w io.Writer) {
	fmt.Fprintln(w, "gonovel - visual novel engine")
	fmt.Fprintf(w, "Version: %s\n", version.String())
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  gonovel version|-v|--version           Show version")
	fmt.Fprintln(w, "  gonovel init <dir> <name>               Create a new novel at <dir>")
	fmt.Fprintln(w, "  gonovel open <dir>                      Print a summary of the novel at <dir>")
	fmt.Fprintln(w, "  gonovel run <dir> [script]              Play a script headless and print its lines")
	fmt.Fprintln(w, "  gonovel play <dir> [script]             Play a script in a window (build with -tags ebiten)")
	fmt.Fprintln(w, "  gonovel index <dir>                     Rebuild the search index")
	fmt.Fprintln(w, "  gonovel search <dir> <query>            Full-text search over scripts, characters and assets")
	fmt.Fprintln(w, "  gonovel uses <dir> <command>            List the lines that invoke a command")
	fmt.Fprintln(w, "  gonovel export-pdf <dir> <script> <out> Export a script transcript as PDF")
	fmt.Fprintln(w, "  gonovel write <dir> <script> <file|->   Replace a script, keeping the old text as history")
	fmt.Fprintln(w, "  gonovel history <dir> <script>          List the saved versions of a script")
	fmt.Fprintln(w, "  gonovel revert <dir> <script>           Restore the newest saved version of a script")
	fmt.Fprintln(w, "  gonovel config [get <key>]              Show the effective configuration")
	fmt.Fprintln(w, "  gonovel config set <key> <value>        Change a setting in the user config file")
	fmt.Fprintln(w, "  gonovel config token <value>            Store the telemetry upload token in the keyring")
}

func main() {
	applog.Init(applog.FromEnv())
	var guard crash.Guard
	defer guard.Recover()

	cfg, token, err := config.Load()
	if err != nil {
		applog.WithComponent("cli").Warn("config not loaded, using defaults", slog.Any("err", err))
	}
	applog.Init(applog.Options{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		AddSource: cfg.Logging.Source,
		File:      cfg.Logging.File,
	})
	telemetry.SetDefault(telemetry.New(telemetry.FromAppConfig(cfg, token)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = run(ctx, os.Args[1:], os.Stdout, cfg, &guard)
	stop()
	telemetry.Default().Flush(context.Background())
	switch {
	case errors.Is(err, errUsage):
		fmt.Fprintln(os.Stderr, err)
		usage(os.Stderr)
		os.Exit(2)
	case err != nil:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// run executes one CLI command. guard may be nil.
func run(ctx context.Context, args []string, out io.Writer, cfg config.AppConfig, guard *crash.Guard) error {
	l := applog.WithComponent("cli")
	if guard == nil {
		guard = &crash.Guard{}
	}
	if len(args) == 0 {
		usage(out)
		return nil
	}
	need := func(n int, what string) error {
		if len(args) < n+1 {
			return fmt.Errorf("%w: %s requires %s", errUsage, args[0], what)
		}
		return nil
	}
	open := func() (*storage.ProjectHandle, error) {
		abs, _ := filepath.Abs(args[1])
		l.Info("open novel", slog.String("root", abs))
		ph, err := storage.Open(abs)
		if err != nil {
			return nil, err
		}
		guard.Project = ph
		return ph, nil
	}
	optional := func(i int) string {
		if len(args) > i {
			return args[i]
		}
		return ""
	}

	switch args[0] {
	case "version", "--version", "-v":
		fmt.Fprintln(out, "gonovel", version.String())
		return nil

	case "init":
		if err := need(2, "<dir> and <name>"); err != nil {
			return err
		}
		abs, _ := filepath.Abs(args[1])
		l.Info("init novel", slog.String("root", abs), slog.String("name", args[2]))
		ph, err := storage.InitProject(abs, domain.NewNovel(args[2]))
		if err != nil {
			return err
		}
		guard.Project = ph
		fmt.Fprintln(out, "Created novel at", abs)
		telemetry.Event("novel_created", nil)
		return nil

	case "open":
		if err := need(1, "<dir>"); err != nil {
			return err
		}
		ph, err := open()
		if err != nil {
			return err
		}
		return summary(out, ph)

	case "run", "play":
		if err := need(1, "<dir>"); err != nil {
			return err
		}
		ph, err := open()
		if err != nil {
			return err
		}
		conv, err := storage.LoadConversation(ph, optional(2))
		if err != nil {
			return err
		}
		if args[0] == "play" {
			return play(ctx, ph, conv, cfg, guard)
		}
		return runHeadless(ctx, out, ph, conv, cfg, guard)

	case "index":
		if err := need(1, "<dir>"); err != nil {
			return err
		}
		ph, err := open()
		if err != nil {
			return err
		}
		if _, err := storage.DetectAndRebuildIndex(ctx, ph); err != nil {
			return err
		}
		if err := storage.RebuildIndex(ctx, ph); err != nil {
			return err
		}
		fmt.Fprintln(out, "Index rebuilt:", storage.IndexPath(ph.Root))
		return nil

	case "search", "uses":
		if err := need(2, "<dir> and a query"); err != nil {
			return err
		}
		ph, err := open()
		if err != nil {
			return err
		}
		if err := storage.BuildIndexIfEmpty(ctx, ph); err != nil {
			return err
		}
		var res []storage.SearchResult
		if args[0] == "uses" {
			res, err = storage.CommandUsage(ctx, ph.Root, args[2], 0, 0)
		} else {
			res, err = storage.Search(ctx, ph.Root, storage.SearchQuery{Text: strings.Join(args[2:], " ")})
		}
		if err != nil {
			return err
		}
		for _, r := range res {
			printResult(out, r)
		}
		fmt.Fprintf(out, "%d result(s)\n", len(res))
		return nil

	case "export-pdf":
		if err := need(3, "<dir>, <script> and <out>"); err != nil {
			return err
		}
		ph, err := open()
		if err != nil {
			return err
		}
		if err := export.ExportScriptPDF(ph, args[2], args[3], export.PDFOptions{IncludeCommands: true, LineNumbers: true}); err != nil {
			return err
		}
		fmt.Fprintln(out, "Exported", args[2], "to", args[3])
		return nil

	case "write":
		if err := need(3, "<dir>, <script> and <file>"); err != nil {
			return err
		}
		ph, err := open()
		if err != nil {
			return err
		}
		text, err := readInput(args[3])
		if err != nil {
			return err
		}
		if err := storage.WriteScript(ctx, ph, args[2], text); err != nil {
			return err
		}
		if err := storage.RebuildIndex(ctx, ph); err != nil {
			l.Warn("index not refreshed", slog.Any("err", err))
		}
		fmt.Fprintln(out, "Wrote", storage.ScriptPath(ph, args[2]))
		return nil

	case "history":
		if err := need(2, "<dir> and <script>"); err != nil {
			return err
		}
		ph, err := open()
		if err != nil {
			return err
		}
		snaps, err := storage.ListScriptSnapshots(ctx, ph, storage.ScriptName(args[2]), storage.ScriptHistoryLimit)
		if err != nil {
			return err
		}
		for _, s := range snaps {
			fmt.Fprintf(out, "%s  %d line(s)  %s\n", s.TS.Local().Format("2006-01-02 15:04:05"), script.Load("", s.Text).Len(), firstLine(s.Text))
		}
		fmt.Fprintf(out, "%d version(s)\n", len(snaps))
		return nil

	case "revert":
		if err := need(2, "<dir> and <script>"); err != nil {
			return err
		}
		ph, err := open()
		if err != nil {
			return err
		}
		snap, err := storage.RevertScript(ctx, ph, args[2])
		if err != nil {
			return err
		}
		if err := storage.RebuildIndex(ctx, ph); err != nil {
			l.Warn("index not refreshed", slog.Any("err", err))
		}
		fmt.Fprintf(out, "Reverted %s to the version from %s\n", storage.ScriptName(args[2]), snap.TS.Local().Format("2006-01-02 15:04:05"))
		return nil

	case "config":
		return configCommand(out, cfg, args[1:])
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

// configCommand shows the effective configuration or edits the user file. Edits
// start from the file alone so environment overrides are never persisted.
func configCommand(out io.Writer, cfg config.AppConfig, args []string) error {
	if len(args) == 0 {
		for _, k := range config.Keys() {
			v, _ := config.Get(cfg, k)
			if name, ok := config.EnvOverrideFor(k); ok {
				fmt.Fprintf(out, "%s = %s (from %s)\n", k, v, name)
				continue
			}
			fmt.Fprintf(out, "%s = %s\n", k, v)
		}
		return nil
	}
	switch args[0] {
	case "get":
		if len(args) < 2 {
			return fmt.Errorf("%w: config get requires <key>", errUsage)
		}
		v, err := config.Get(cfg, args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, v)
		return nil
	case "set":
		if len(args) < 3 {
			return fmt.Errorf("%w: config set requires <key> and <value>", errUsage)
		}
		fileCfg, err := config.LoadFile()
		if err != nil {
			return err
		}
		if err := config.Set(&fileCfg, args[1], strings.Join(args[2:], " ")); err != nil {
			return err
		}
		if err := config.Save(fileCfg, ""); err != nil {
			return err
		}
		path, _ := config.ConfigPath()
		fmt.Fprintln(out, "Saved", path)
		if name, ok := config.EnvOverrideFor(strings.ToLower(args[1])); ok {
			fmt.Fprintf(out, "Note: %s overrides this setting while it is set\n", name)
		}
		return nil
	case "token":
		if len(args) < 2 || strings.TrimSpace(args[1]) == "" {
			return fmt.Errorf("%w: config token requires <value>", errUsage)
		}
		fileCfg, err := config.LoadFile()
		if err != nil {
			return err
		}
		if err := config.Save(fileCfg, strings.TrimSpace(args[1])); err != nil {
			return err
		}
		fmt.Fprintln(out, "Token stored in the keyring")
		return nil
	}
	return fmt.Errorf("%w: unknown config command %q", errUsage, args[0])
}

// readInput reads a file, or stdin for "-".
func readInput(name string) (string, error) {
	if name == "-" {
		b, err := io.ReadAll(os.Stdin)
		return string(b), err
	}
	b, err := os.ReadFile(name)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func firstLine(text string) string {
	for _, l := range strings.Split(text, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			if r := []rune(l); len(r) > 48 {
				return string(r[:48]) + "…"
			}
			return l
		}
	}
	return ""
}

func summary(out io.Writer, ph *storage.ProjectHandle) error {
	scripts, err := storage.ListScripts(ph)
	if err != nil {
		return err
	}
	chars, err := character.LoadConfigDB(ph.CharactersPath())
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Novel: %s\n", ph.Novel.Name)
	if a := ph.Novel.Metadata.Author; a != "" {
		fmt.Fprintf(out, "Author: %s\n", a)
	}
	fmt.Fprintf(out, "Start: %s\n", ph.Novel.StartScript())
	fmt.Fprintf(out, "Scripts: %d\n", len(scripts))
	fmt.Fprintf(out, "Characters: %d\n", len(chars.Names()))
	fmt.Fprintln(out, "Root:", ph.Root)
	return nil
}

func printResult(out io.Writer, r storage.SearchResult) {
	where := r.Path
	if r.Script != "" {
		where = fmt.Sprintf("%s:%d", r.Script, r.Line)
	}
	text := r.Snippet
	if r.Speaker != "" {
		text = r.Speaker + ": " + text
	}
	fmt.Fprintf(out, "%-16s %-9s %s\n", where, r.Type, text)
}

// newEngine builds an engine over the project's resources, character configs and
// Lua commands. Panels named in the manifest replace the configured ones.
func newEngine(ph *storage.ProjectHandle, cfg config.AppConfig, sink render.Sink) (*engine.Engine, error) {
	chars, err := character.LoadConfigDB(ph.CharactersPath())
	if err != nil {
		return nil, err
	}
	ec := cfg.Engine
	if len(ph.Novel.Panels) > 0 {
		ec.Panels = ph.Novel.Panels
	}
	return engine.New(engine.Options{
		Config:     ec,
		Store:      asset.NewFSStore(ph.ResourcesDir()),
		Characters: chars,
		Sink:       sink,
		Logger:     applog.WithComponent("engine"),
		Extensions: []command.Extension{command.NewLua(ph.CommandsDir(), applog.WithComponent("lua"))},
	}), nil
}

func runHeadless(ctx context.Context, out io.Writer, ph *storage.ProjectHandle, conv script.Conversation, cfg config.AppConfig, guard *crash.Guard) error {
	eng, err := newEngine(ph, cfg, render.Discard)
	if err != nil {
		return err
	}
	defer eng.Close()
	conversation := eng.Dialogue.Conversation
	guard.Where = func() string {
		return fmt.Sprintf("%s line %d (%s)", conv.Name, conversation.LineIndex()+1, conversation.State())
	}
	lines := 0
	conversation.OnLine = func(line script.Line) {
		if !line.HasDialogue() {
			return
		}
		lines++
		text := strings.TrimSpace(line.Dialogue())
		if line.Speaker == nil {
			fmt.Fprintln(out, text)
			return
		}
		display, _ := character.ParseCasting(line.Speaker.Name)
		if strings.EqualFold(display, dialogue.Narrator) {
			fmt.Fprintln(out, text)
			return
		}
		fmt.Fprintf(out, "%s: %s\n", display, text)
	}
	err = eng.Run(ctx, conv)
	telemetry.Event("run_finished", map[string]any{"lines": lines, "ok": err == nil})
	return err
}

func play(ctx context.Context, ph *storage.ProjectHandle, conv script.Conversation, cfg config.AppConfig, guard *crash.Guard) error {
	scene := host.NewScene()
	eng, err := newEngine(ph, cfg, scene)
	if err != nil {
		return err
	}
	defer eng.Close()
	d := host.NewDriver(eng, scene)
	fonts, err := textlayout.LoadDir(filepath.Join(ph.ResourcesDir(), storage.FontsDirName))
	if err != nil {
		applog.WithComponent("cli").Warn("some fonts not loaded", slog.Any("err", err))
	}
	d.Fonts = fonts
	guard.Where = func() string { return conv.Name + " " + d.Status() }
	d.Start(conv)
	win := cfg.Window
	if strings.TrimSpace(ph.Novel.Name) != "" {
		win.Title = ph.Novel.Name
	}
	err = host.Run(ctx, d, win)
	telemetry.Event("play_finished", map[string]any{"frames": d.Frames(), "ok": err == nil})
	return err
}
