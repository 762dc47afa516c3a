package office

import "time"

// Office は所属部署エンティティです。
type Office struct {
	ID        string
	Name      string
	Code      string
	Position  int
	CreatedAt time.Time
}
