// Package rostercsv 花名册 CSV 映射：表头 name,rollNumber,email，每行一名学生。
package rostercsv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Header CSV 表头
var Header = []string{"name", "rollNumber", "email"}

var ErrMissingHeader = errors.New("CSV header must contain name and rollNumber columns")

// Row 花名册中的一行
type Row struct {
	Name       string
	RollNumber string
	Email      string
}

// Valid 姓名与学号均非空
func (r Row) Valid() bool {
	return r.Name != "" && r.RollNumber != ""
}

// Encode 写出表头与全部行
func Encode(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write([]string{r.Name, r.RollNumber, r.Email}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// Template 生成 n 行占位数据：Student N / 100+N / studentN@example.com
func Template(n int) []Row {
	rows := make([]Row, 0, n)
	for i := 1; i <= n; i++ {
		rows = append(rows, Row{
			Name:       fmt.Sprintf("Student %d", i),
			RollNumber: strconv.Itoa(100 + i),
			Email:      fmt.Sprintf("student%d@example.com", i),
		})
	}
	return rows
}

// Decode 读取 CSV，按表头定位列（顺序不限，大小写不敏感），跳过全空行
func Decode(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read CSV header: %w", err)
	}

	col := headerIndex(header)
	if col["name"] < 0 || col["rollnumber"] < 0 {
		return nil, ErrMissingHeader
	}

	var rows []Row
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read CSV: %w", err)
		}

		row := Row{
			Name:       field(rec, col["name"]),
			RollNumber: field(rec, col["rollnumber"]),
			Email:      field(rec, col["email"]),
		}
		if row == (Row{}) {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ValidRows 仅保留姓名与学号均非空的行
func ValidRows(rows []Row) []Row {
	valid := make([]Row, 0, len(rows))
	for _, r := range rows {
		if r.Valid() {
			valid = append(valid, r)
		}
	}
	return valid
}

func headerIndex(header []string) map[string]int {
	idx := map[string]int{"name": -1, "rollnumber": -1, "email": -1}
	for i, h := range header {
		key := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, ok := idx[key]; ok && idx[key] < 0 {
			idx[key] = i
		}
	}
	return idx
}

func field(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}
