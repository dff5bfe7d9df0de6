// Package reward contains the reward catalog and the redemption engine.
package reward

import (
	"strings"

	"github.com/lhtc/classpoint/internal/domain/shared"
)

// Reward is a mutable catalog entry that students can buy with points.
type Reward struct {
	ID          string
	Name        string
	Icon        string
	Cost        int
	Description string
}

// Defaults for new catalog entries.
const (
	DefaultName = "Quà mới"
	DefaultIcon = "🎁"
	DefaultCost = 50
)

// Validate checks that the reward can be offered.
func (r Reward) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return shared.NewDomainError("reward", "Validate", shared.ErrEmptyValue, "reward name is required")
	}
	if r.Cost < 0 {
		return shared.NewDomainError("reward", "Validate", shared.ErrNegativeValue, "reward cost cannot be negative")
	}
	return nil
}

// Normalize trims text fields and fills a missing icon.
func (r Reward) Normalize() Reward {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	r.Icon = strings.TrimSpace(r.Icon)
	if r.Icon == "" {
		r.Icon = DefaultIcon
	}
	return r
}

// DefaultCatalog returns the catalog seeded on first run.
func DefaultCatalog() []Reward {
	return []Reward{
		{ID: "1", Name: "Miễn 1 bài tập", Icon: "📝", Cost: 30, Description: "Miễn làm một bài tập về nhà"},
		{ID: "2", Name: "Chọn chỗ ngồi", Icon: "🪑", Cost: 50, Description: "Được chọn chỗ ngồi trong 1 tuần"},
		{ID: "3", Name: "+5 điểm kiểm tra", Icon: "✏️", Cost: 80, Description: "Cộng điểm vào bài kiểm tra 15p"},
		{ID: "4", Name: "Ngồi ghế GV", Icon: "👨‍🏫", Cost: 100, Description: "Ngồi ghế giáo viên 1 tiết học"},
		{ID: "5", Name: "Voucher sách", Icon: "📚", Cost: 150, Description: "Voucher mua sách trị giá 50k"},
		{ID: "6", Name: "Giải đặc biệt", Icon: "🏆", Cost: 200, Description: "Phần quà bí mật từ giáo viên"},
	}
}

// Affordable returns the rewards whose cost fits within points.
func Affordable(catalog []Reward, points int) []Reward {
	out := make([]Reward, 0, len(catalog))
	for _, r := range catalog {
		if r.Cost <= points {
			out = append(out, r)
		}
	}
	return out
}
