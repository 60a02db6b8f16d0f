package gerberlexer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	. "github.com/Alberthycentte/Gerber-to-Blender-pipeline-V2.0/gerberbasetypes"
)

var (
	errUnterminated = errors.New("extended command is not terminated by '%'")
	errBadBlock     = errors.New("malformed aperture block statement")
)

// ExtLexer splits the body of FS, MO, AD, LP and SR commands.
// Letters are single tokens because Gerber glues codes and values together.
var ExtLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `[-+]?(\d+\.?\d*|\.\d+)`},
	{Name: "Letter", Pattern: `[A-Za-z_$]`},
	{Name: "Punct", Pattern: `[,.]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

type extendedGrammar struct {
	Format   *formatGrammar   `parser:"  \"F\" \"S\" @@"`
	Units    *string          `parser:"| \"M\" \"O\" @( \"I\" \"N\" | \"M\" \"M\" )"`
	Aperture *apertureGrammar `parser:"| \"A\" \"D\" \"D\" @@"`
	Polarity *string          `parser:"| \"L\" \"P\" @( \"D\" | \"C\" )"`
	Step     *stepGrammar     `parser:"| \"S\" \"R\" @@?"`
}

type formatGrammar struct {
	Zeros    string `parser:"@( \"L\" | \"T\" | \"D\" )?"`
	Notation string `parser:"@( \"A\" | \"I\" )?"`
	X        string `parser:"\"X\" @Number"`
	Y        string `parser:"\"Y\" @Number"`
}

type apertureGrammar struct {
	Code     string   `parser:"@Number"`
	Template string   `parser:"@( Letter | Number )+"`
	Params   []string `parser:"( \",\" @Number ( \"X\" @Number )* )?"`
}

type stepGrammar struct {
	Params []*stepParam `parser:"@@*"`
}

type stepParam struct {
	Axis  string `parser:"@( \"X\" | \"Y\" | \"I\" | \"J\" )"`
	Value string `parser:"@Number"`
}

var extParser = participle.MustBuild[extendedGrammar](
	participle.Lexer(ExtLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// fills the payload of cmd from its body
func parseExtended(cmd *GerberCommand) error {
	body := strings.ToUpper(squeezeString(cmd.Body))
	ext, err := extParser.ParseString("", body)
	if err != nil {
		return fmt.Errorf("%s: %w", cmd.Id, err)
	}
	switch {
	case ext.Format != nil && cmd.Id == FS:
		cmd.Format, err = ext.Format.directive()
	case ext.Units != nil && cmd.Id == MO:
		if *ext.Units == "IN" {
			cmd.Units = UnitsInch
		} else {
			cmd.Units = UnitsMM
		}
	case ext.Aperture != nil && cmd.Id == AD:
		cmd.Aperture, err = ext.Aperture.directive()
	case ext.Polarity != nil && cmd.Id == LP:
		if *ext.Polarity == "C" {
			cmd.Polarity = PolTypeClear
		} else {
			cmd.Polarity = PolTypeDark
		}
	case cmd.Id == SR:
		if ext.Step == nil {
			// %SR*% closes the block
			cmd.Step = new(StepRepeatDirective)
			break
		}
		cmd.Step, err = ext.Step.directive()
	default:
		err = fmt.Errorf("%s: unexpected body %q", cmd.Id, cmd.Body)
	}
	return err
}

// "24" -> 2 integer and 4 decimal digits
func splitDigits(s string) (int, int, error) {
	if len(s) != 2 || !strings.ContainsRune("0123456789", rune(s[0])) || !strings.ContainsRune("0123456789", rune(s[1])) {
		return 0, 0, fmt.Errorf("bad coordinate digits %q", s)
	}
	return int(s[0] - '0'), int(s[1] - '0'), nil
}

func (fg *formatGrammar) directive() (*FormatDirective, error) {
	fd := new(FormatDirective)
	var err error
	switch fg.Zeros {
	case "L", "":
		fd.Zeros = ZeroSuppLeading
	case "T":
		fd.Zeros = ZeroSuppTrailing
	case "D":
		fd.Zeros = ZeroSuppNone
	}
	fd.Notation = NotationAbsolute
	if fg.Notation == "I" {
		fd.Notation = NotationIncremental
	}
	if fd.XI, fd.XD, err = splitDigits(fg.X); err != nil {
		return nil, err
	}
	if fd.YI, fd.YD, err = splitDigits(fg.Y); err != nil {
		return nil, err
	}
	return fd, nil
}

func (ag *apertureGrammar) directive() (*ApertureDirective, error) {
	code, err := strconv.Atoi(ag.Code)
	if err != nil {
		return nil, fmt.Errorf("bad aperture number %q", ag.Code)
	}
	ad := &ApertureDirective{Code: code, Template: ag.Template}
	for _, p := range ag.Params {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, fmt.Errorf("bad aperture parameter %q", p)
		}
		ad.Params = append(ad.Params, v)
	}
	return ad, nil
}

func (sg *stepGrammar) directive() (*StepRepeatDirective, error) {
	sd := new(StepRepeatDirective)
	if len(sg.Params) == 0 {
		return sd, nil
	}
	seen := make(map[string]bool)
	for _, p := range sg.Params {
		if seen[p.Axis] {
			return nil, fmt.Errorf("duplicated SR parameter %s", p.Axis)
		}
		seen[p.Axis] = true
		v, err := strconv.ParseFloat(p.Value, 64)
		if err != nil {
			return nil, err
		}
		switch p.Axis {
		case "X":
			sd.X = int(v)
		case "Y":
			sd.Y = int(v)
		case "I":
			sd.I = v
		case "J":
			sd.J = v
		}
	}
	if len(seen) != 4 {
		return nil, errors.New("missing one or some SR parameter(s)")
	}
	if sd.X < 1 || sd.Y < 1 {
		return nil, errors.New("SR repeat counts must be >= 1")
	}
	return sd, nil
}
