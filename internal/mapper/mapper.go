// Package mapper converts between geographic coordinates and H3 cells.
package mapper

import (
	"github.com/mohammed-shakir/floodzone-resolver/internal/core/model"
)

type Interface interface {
	CellForPoint(p model.Point, res int) (string, error)
	CellsForEnvelope(env model.Envelope, res int) ([]string, error)
}
