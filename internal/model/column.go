package model

type ColumnType string

const (
	ColumnText    ColumnType = "text"
	ColumnNumeric ColumnType = "numeric"
	ColumnDate    ColumnType = "date"
	ColumnBoolean ColumnType = "boolean"
)

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

func (t ColumnType) Valid() bool {
	switch t {
	case ColumnText, ColumnNumeric, ColumnDate, ColumnBoolean:
		return true
	default:
		return false
	}
}

func ColumnNames(cols []Column) []string {
	names := make([]string, 0, len(cols))
	for _, col := range cols {
		names = append(names, col.Name)
	}
	return names
}

func TextColumns(cols []Column) []string {
	names := make([]string, 0, len(cols))
	for _, col := range cols {
		if col.Type == ColumnText {
			names = append(names, col.Name)
		}
	}
	return names
}
