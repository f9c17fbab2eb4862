package classify

import "fmt"

// Label is the benign/malignant outcome for one lesion.
type Label int

const (
	Benign Label = iota
	Malignant
)

// LabelFromPrediction maps the classifier's class index to a Label.
func LabelFromPrediction(p int) (Label, error) {
	switch p {
	case 0:
		return Benign, nil
	case 1:
		return Malignant, nil
	default:
		return 0, fmt.Errorf("unexpected class index %d", p)
	}
}

func (l Label) String() string {
	switch l {
	case Benign:
		return "Benign"
	case Malignant:
		return "Malignant"
	default:
		return fmt.Sprintf("Label(%d)", int(l))
	}
}

// MarshalText encodes the label as its name.
func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}
