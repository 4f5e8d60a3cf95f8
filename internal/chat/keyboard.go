package chat

// ExitData is the callback payload of the universal dialogue exit button.
// The dispatcher treats it as an abort from any state of any workflow.
const ExitData = "_exit"

// ExitButton is the cancel affordance appended to most dialogue keyboards.
var ExitButton = Button{Label: "Cancel", Data: ExitData}

// BuildKeyboard lays out buttons row by row with at most maxColumns per row.
// When withExit is true a trailing row with the universal exit button is
// appended, mirroring the affordance every dialogue state must offer.
func BuildKeyboard(buttons []Button, maxColumns int, withExit bool) Keyboard {
	if maxColumns <= 0 {
		maxColumns = 3
	}
	var kb Keyboard
	for i := 0; i < len(buttons); i += maxColumns {
		end := i + maxColumns
		if end > len(buttons) {
			end = len(buttons)
		}
		row := make([]Button, end-i)
		copy(row, buttons[i:end])
		kb = append(kb, row)
	}
	if withExit {
		kb = append(kb, []Button{ExitButton})
	}
	return kb
}

// LabelButtons builds buttons whose payload is prefix plus the label itself,
// for choice sets where the label is the value.
func LabelButtons(prefix string, labels ...string) []Button {
	buttons := make([]Button, len(labels))
	for i, label := range labels {
		buttons[i] = Button{Label: label, Data: prefix + label}
	}
	return buttons
}
