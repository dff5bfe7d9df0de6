// Package export writes class rosters and leaderboards as CSV files that
// open cleanly in spreadsheet software.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/lhtc/classpoint/internal/domain/student"
)

// bom makes spreadsheet software read the file as UTF-8.
const bom = "\ufeff"

// RosterHeader is the header row of a roster export.
var RosterHeader = []string{
	"STT", "ID", "Họ và Tên", "Ngày Sinh", "Lớp", "Điểm Hiện Tại",
	"Cấp Độ", "Tổng Điểm Cộng", "Tổng Điểm Trừ", "Số Quà Đã Đổi",
}

// LeaderboardHeader is the header row of a leaderboard export.
var LeaderboardHeader = []string{"Hạng", "ID", "Họ và Tên", "Điểm", "Cấp Độ"}

// LeaderboardRow is one ranked line of a leaderboard export.
type LeaderboardRow struct {
	Rank      int
	StudentID string
	Name      string
	Points    int
	Level     student.Level
}

// FileName returns the download name of an export made at t.
func FileName(kind string, t time.Time) string {
	return fmt.Sprintf("classpoint_%s_%s.csv", kind, t.Format("2006-01-02"))
}

// WriteRoster writes one row per student in the given order. The class
// column holds the imported class label, or className when a student has
// none.
func WriteRoster(w io.Writer, className string, students []student.Student) error {
	cw, err := begin(w, RosterHeader)
	if err != nil {
		return err
	}

	for _, s := range students {
		order := ""
		if s.Order != nil {
			order = strconv.Itoa(*s.Order)
		}
		class := s.ClassLabel
		if class == "" {
			class = className
		}
		row := []string{
			order,
			s.ID,
			s.Name,
			s.DOB,
			class,
			strconv.Itoa(s.TotalPoints),
			s.Level().Name(),
			strconv.Itoa(s.TotalAwarded()),
			strconv.Itoa(s.TotalDeducted()),
			strconv.Itoa(len(s.RewardsRedeemed)),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write roster row: %w", err)
		}
	}
	return end(cw)
}

// WriteLeaderboard writes ranked rows.
func WriteLeaderboard(w io.Writer, rows []LeaderboardRow) error {
	cw, err := begin(w, LeaderboardHeader)
	if err != nil {
		return err
	}

	for _, r := range rows {
		row := []string{
			strconv.Itoa(r.Rank),
			r.StudentID,
			r.Name,
			strconv.Itoa(r.Points),
			r.Level.Name(),
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write leaderboard row: %w", err)
		}
	}
	return end(cw)
}

func begin(w io.Writer, header []string) (*csv.Writer, error) {
	if _, err := io.WriteString(w, bom); err != nil {
		return nil, fmt.Errorf("write bom: %w", err)
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return cw, nil
}

func end(cw *csv.Writer) error {
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}
