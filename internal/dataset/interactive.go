package dataset

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/blueprintkit/bioblueprint/internal/model"
)

// promptableField describes one known-info field the fill flow can ask for.
type promptableField struct {
	label    string
	examples string
	get      func(*model.KnownInfo) string
	set      func(*model.KnownInfo, string)
}

var promptableFields = []promptableField{
	{
		label:    "Gender (Male/Female/Other)",
		examples: "Male, Female",
		get:      func(k *model.KnownInfo) string { return k.Gender },
		set:      func(k *model.KnownInfo, v string) { k.Gender = v },
	},
	{
		label:    "Username/Handle",
		examples: "@the_jiajun, jiajun",
		get:      func(k *model.KnownInfo) string { return k.Username },
		set:      func(k *model.KnownInfo, v string) { k.Username = v },
	},
	{
		label:    "Name",
		examples: "Jiajun",
		get:      func(k *model.KnownInfo) string { return k.Name },
		set:      func(k *model.KnownInfo, v string) { k.Name = v },
	},
	{
		label:    "Age Range",
		examples: "25-35, 28-35",
		get:      func(k *model.KnownInfo) string { return k.AgeRange },
		set:      func(k *model.KnownInfo, v string) { k.AgeRange = v },
	},
	{
		label:    "Location",
		examples: "Shanghai, China; Palo Alto, CA",
		get:      func(k *model.KnownInfo) string { return k.Location },
		set:      func(k *model.KnownInfo, v string) { k.Location = v },
	},
	{
		label:    "Occupation",
		examples: "Software Engineer, Office Worker",
		get:      func(k *model.KnownInfo) string { return k.Occupation },
		set:      func(k *model.KnownInfo, v string) { k.Occupation = v },
	},
}

// FillMissing prompts for every unset known-info field, reading answers from
// in and writing prompts to out. Empty answers skip a field. The filled copy
// is returned; the input value is not modified.
func FillMissing(in io.Reader, out io.Writer, known model.KnownInfo) (model.KnownInfo, error) {
	reader := bufio.NewReader(in)
	result := known

	for _, field := range promptableFields {
		if field.get(&result) != "" {
			continue
		}

		fmt.Fprintf(out, "%s (e.g., %s) [optional, press Enter to skip]: ", field.label, field.examples)

		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return result, eris.Wrap(err, "dataset: read input")
		}
		if answer := strings.TrimSpace(line); answer != "" {
			field.set(&result, answer)
		}
		if err == io.EOF {
			break
		}
	}

	return result, nil
}
