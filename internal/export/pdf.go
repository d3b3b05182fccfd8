/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"gonovel/internal/character"
	"gonovel/internal/dialogue"
	"gonovel/internal/render"
	"gonovel/internal/script"
	"gonovel/internal/storage"
)

// ExportsDirName is where relative output paths are placed inside a project.
const ExportsDirName = "exports"

// PDFOptions controls the transcript layout. Units are points (pt).
// Text uses the built-in Helvetica, translated from UTF-8 to cp1252.
type PDFOptions struct {
	PageSize        string  // "A4" (default), "Letter", "A5"
	FontSize        float64 // body size, 11 when zero
	IncludeCommands bool
	LineNumbers     bool
}

// Entry is one transcript row: a script line with its speaker, dialogue and commands.
type Entry struct {
	Line     int
	Speaker  string // display name; empty for narration and the narrator
	Color    render.Color
	Text     string
	Commands []string
	Problems []string
}

// Entries turns a conversation into transcript rows. Blank and comment lines are
// skipped; parse problems are kept on the row they belong to.
func Entries(conv script.Conversation, cfgs character.ConfigSource, includeCommands bool) []Entry {
	if cfgs == nil {
		cfgs = character.NewConfigDB()
	}
	var out []Entry
	for i, src := range conv.Lines {
		line, errs := script.ParseLine(i+1, src)
		if line.Empty() && len(errs) == 0 {
			continue
		}
		e := Entry{Line: i + 1, Color: render.Black, Text: strings.TrimSpace(line.Dialogue())}
		if line.Speaker != nil {
			display, casting := character.ParseCasting(line.Speaker.Name)
			if !strings.EqualFold(display, dialogue.Narrator) {
				e.Speaker = display
				e.Color = printable(cfgs.GetConfig(casting).NameColor)
			}
		}
		if includeCommands {
			for _, c := range line.Commands() {
				e.Commands = append(e.Commands, c.String())
			}
		}
		for _, err := range errs {
			e.Problems = append(e.Problems, err.Error())
		}
		if e.Text == "" && e.Speaker == "" && len(e.Commands) == 0 && len(e.Problems) == 0 {
			continue
		}
		out = append(out, e)
	}
	return out
}

// printable darkens colors that would vanish on white paper.
func printable(c render.Color) render.Color {
	if 0.299*c.R+0.587*c.G+0.114*c.B > 0.8 || c.A == 0 {
		return render.Black
	}
	return c
}

// WriteScriptPDF renders a transcript of conv to w.
func WriteScriptPDF(w io.Writer, title string, conv script.Conversation, cfgs character.ConfigSource, opt PDFOptions) error {
	pdf := newTranscript(title, opt)
	writeEntries(pdf, Entries(conv, cfgs, opt.IncludeCommands), opt)
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// ExportScriptPDF exports the named script of a project (the start script when name
// is empty) to a PDF transcript at outPath. Relative paths go under the project's
// exports folder. Speaker names use the name colors of characters.yaml.
func ExportScriptPDF(ph *storage.ProjectHandle, name, outPath string, opt PDFOptions) error {
	if ph == nil {
		return errors.New("project handle is nil")
	}
	if strings.TrimSpace(outPath) == "" {
		return errors.New("output path is required")
	}
	conv, err := storage.LoadConversation(ph, name)
	if err != nil {
		return err
	}
	cfgs, err := character.LoadConfigDB(ph.CharactersPath())
	if err != nil {
		return fmt.Errorf("load character configs: %w", err)
	}

	title := conv.Name
	if n := strings.TrimSpace(ph.Novel.Name); n != "" {
		title = n + ": " + conv.Name
	}
	pdf := newTranscript(title, opt)
	if a := strings.TrimSpace(ph.Novel.Metadata.Author); a != "" {
		pdf.SetAuthor(a, true)
	}
	writeEntries(pdf, Entries(conv, cfgs, opt.IncludeCommands), opt)

	if !filepath.IsAbs(outPath) {
		outPath = filepath.Join(ph.Root, ExportsDirName, outPath)
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func newTranscript(title string, opt PDFOptions) *gofpdf.Fpdf {
	size := strings.TrimSpace(opt.PageSize)
	if size == "" {
		size = "A4"
	}
	pdf := gofpdf.New("P", "pt", size, "")
	pdf.SetMargins(56, 56, 56)
	pdf.SetAutoPageBreak(true, 56)
	pdf.SetTitle(title, true)
	pdf.SetCreator("gonovel", false)
	pdf.AliasNbPages("")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-40)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(128, 128, 128)
		pdf.CellFormat(0, 10, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.MultiCell(0, 24, tr(title), "", "L", false)
	pdf.Ln(12)
	return pdf
}

func writeEntries(pdf *gofpdf.Fpdf, entries []Entry, opt PDFOptions) {
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	size := opt.FontSize
	if size <= 0 {
		size = 11
	}
	lh := size * 1.35
	left, _, _, _ := pdf.GetMargins()
	gutter := 0.0
	if opt.LineNumbers {
		gutter = size * 3
	}
	for _, e := range entries {
		pdf.SetX(left)
		if opt.LineNumbers {
			pdf.SetFont("Helvetica", "", size*0.8)
			pdf.SetTextColor(150, 150, 150)
			pdf.CellFormat(gutter, lh, fmt.Sprintf("%d", e.Line), "", 0, "R", false, 0, "")
			pdf.SetX(left + gutter + 6)
		}
		if e.Speaker != "" {
			pdf.SetFont("Helvetica", "B", size)
			setTextColor(pdf, e.Color)
			pdf.Write(lh, tr(e.Speaker+": "))
		}
		if e.Text != "" {
			pdf.SetFont("Helvetica", "", size)
			pdf.SetTextColor(0, 0, 0)
			pdf.Write(lh, tr(e.Text))
		}
		indent := left + gutter
		if opt.LineNumbers {
			indent += 6
		}
		for i, c := range e.Commands {
			if i == 0 && (e.Text != "" || e.Speaker != "") {
				pdf.Ln(lh)
			}
			pdf.SetX(indent)
			pdf.SetFont("Courier", "", size*0.85)
			pdf.SetTextColor(90, 90, 90)
			pdf.Write(lh, tr(c)+" ")
		}
		for _, p := range e.Problems {
			pdf.Ln(lh)
			pdf.SetX(indent)
			pdf.SetFont("Helvetica", "I", size*0.85)
			pdf.SetTextColor(200, 0, 0)
			pdf.Write(lh, tr(p))
		}
		pdf.Ln(lh * 1.4)
	}
}

func setTextColor(pdf *gofpdf.Fpdf, c render.Color) {
	pdf.SetTextColor(int(c.R*255+0.5), int(c.G*255+0.5), int(c.B*255+0.5))
}
