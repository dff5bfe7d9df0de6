package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lhtc/classpoint/internal/domain/reward"
	"github.com/lhtc/classpoint/internal/domain/shared"
	"github.com/lhtc/classpoint/internal/domain/student"
	"github.com/lhtc/classpoint/internal/infrastructure/importer"
)

func sampleStudents(t *testing.T) []student.Student {
	t.Helper()
	stamp := &shared.FixedStamper{At: time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC), Prefix: "h-"}
	ledger := student.NewLedger(stamp)
	engine := reward.NewEngine(ledger)

	one := 1
	an, err := student.NewStudent(student.NewStudentParams{
		ID: "s1", ClassID: "c1", Order: &one, Name: "Nguyễn Văn An", DOB: "01/09/2013",
	})
	require.NoError(t, err)
	an, _ = ledger.ApplyDelta(an, 30, "")
	an, _ = ledger.ApplyDelta(an, -5, "")
	an, err = engine.Redeem(an, reward.Reward{ID: "r", Name: "Sticker", Cost: 10})
	require.NoError(t, err)

	binh, err := student.NewStudent(student.NewStudentParams{
		ID: "s2", ClassID: "c1", Name: "Trần, Bình", ClassLabel: "6B",
	})
	require.NoError(t, err)
	binh, _ = ledger.ApplyDelta(binh, 120, "")

	return []student.Student{an, binh}
}

func TestWriteRoster(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRoster(&buf, "6A", sampleStudents(t)))

	want := "\ufeff" +
		"STT,ID,Họ và Tên,Ngày Sinh,Lớp,Điểm Hiện Tại,Cấp Độ,Tổng Điểm Cộng,Tổng Điểm Trừ,Số Quà Đã Đổi\n" +
		"1,s1,Nguyễn Văn An,01/09/2013,6A,15,Hạt,30,15,1\n" +
		",s2,\"Trần, Bình\",,6B,120,Cây to,120,0,0\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteRoster_ImportsBack(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteRoster(&buf, "6A", sampleStudents(t)))

	roster, err := importer.Parse(&buf, importer.FormatCSV)
	require.NoError(t, err)
	records := roster.Records()
	require.Len(t, records, 2)
	assert.Equal(t, 1, *records[0].Order)
	assert.Equal(t, "Nguyễn Văn An", records[0].Name)
	assert.Equal(t, "01/09/2013", records[0].DOB)
	assert.Equal(t, "Trần, Bình", records[1].Name)
	assert.Equal(t, "6B", records[1].ClassName)
}

func TestWriteLeaderboard(t *testing.T) {
	var buf bytes.Buffer
	rows := []LeaderboardRow{
		{Rank: 1, StudentID: "s2", Name: "Bình", Points: 120, Level: student.LevelTree},
		{Rank: 2, StudentID: "s1", Name: "An", Points: 15, Level: student.LevelSeed},
	}
	require.NoError(t, WriteLeaderboard(&buf, rows))

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "\ufeffHạng,ID,Họ và Tên,Điểm,Cấp Độ", lines[0])
	assert.Equal(t, "1,s2,Bình,120,Cây to", lines[1])
	assert.Equal(t, "2,s1,An,15,Hạt", lines[2])
}

func TestFileName(t *testing.T) {
	at := time.Date(2025, 3, 10, 23, 0, 0, 0, time.UTC)
	assert.Equal(t, "classpoint_roster_2025-03-10.csv", FileName("roster", at))
}
