package auth

import "fmt"

// DataScopeType narrows which rows a caller may see.
type DataScopeType int

const (
	DataScopeAll  DataScopeType = 1 // every row
	DataScopeSelf DataScopeType = 2 // rows the caller created
)

// DataScopeInfo is a row-level restriction for one user.
type DataScopeInfo struct {
	Type      DataScopeType `json:"type"`
	UserID    int64         `json:"userId"`
	UserField string        `json:"userField"` // owner column, defaults to created_by
}

// NewDataScopeInfo creates a scope for the user.
func NewDataScopeInfo(scopeType DataScopeType, userID int64) *DataScopeInfo {
	return &DataScopeInfo{
		Type:      scopeType,
		UserID:    userID,
		UserField: "created_by",
	}
}

// WithUserField overrides the owner column.
func (d *DataScopeInfo) WithUserField(field string) *DataScopeInfo {
	d.UserField = field
	return d
}

// ToSQL returns the where clause and args, or empty for unrestricted.
func (d *DataScopeInfo) ToSQL() (string, []interface{}) {
	switch d.Type {
	case DataScopeAll:
		return "", nil
	case DataScopeSelf:
		return fmt.Sprintf("%s = ?", d.UserField), []interface{}{d.UserID}
	default:
		return "", nil
	}
}
