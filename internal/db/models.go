package db

// Slot names. A save always writes the slot the meta row does not point
// at, then flips the meta row, so a failed write leaves the last good save.
const (
	SlotA = "save-loc-1"
	SlotB = "save-loc-2"
)

// SaveVersion is the meta version written by SaveWorkspace. Other
// versions are not loaded.
const SaveVersion = 2

// Meta represents the single row of the save_meta table
type Meta struct {
	Version  int    `json:"version"`
	SaveID   string `json:"save_id"`
	Selected int    `json:"selected"`
}

// TabRow represents a row in the tabs table
type TabRow struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Position  int    `json:"position"`
	Data      string `json:"data"`       // encoded flow graph
	UpdatedAt int64  `json:"updated_at"` // Unix millis
}

// Snapshot is one complete saved workspace
type Snapshot struct {
	Meta Meta     `json:"meta"`
	Tabs []TabRow `json:"tabs"`
}

const tabColumns = `id, name, position, data, updated_at`

// scanTab scans a row into a TabRow. The row must select tabColumns in order.
func scanTab(scanner interface{ Scan(dest ...any) error }) (TabRow, error) {
	var t TabRow
	err := scanner.Scan(&t.ID, &t.Name, &t.Position, &t.Data, &t.UpdatedAt)
	return t, err
}
