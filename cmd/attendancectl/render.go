package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"classroom-attendance/internal/view"
)

func renderStats(w io.Writer, d *view.Dashboard) {
	date, period := d.Selection()
	st := d.Stats()
	fmt.Fprintf(w, "Attendance Dashboard: %s, Period %s\n", date, period)
	fmt.Fprintf(w, "Total %d | Present %d | Partial %d | Absent %d | Attendance Rate %d%%\n\n",
		st.Total, st.Present, st.PartialPresent, st.Absent, st.PresentPercentage)
}

func renderRows(w io.Writer, rows []view.Row, filtered bool) {
	if len(rows) == 0 {
		if filtered {
			fmt.Fprintln(w, "No matching students found.")
		} else {
			fmt.Fprintln(w, "No students found. Add students with `attendancectl students add`.")
		}
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROLL NO.\tNAME\tEMAIL\tTIME PERIOD\tHOURS\tATTENDANCE")
	for _, r := range rows {
		status := r.Status
		if status == "" {
			status = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", r.StudentID, r.RollNumber, r.Name, r.Email, r.TimePeriod, r.Hours, status)
	}
	tw.Flush()
}

// renderSeats 每格显示学号与状态标记：P 出勤，A 缺勤，. 未标记
func renderSeats(w io.Writer, seats [][]view.Seat) {
	fmt.Fprintln(w, "TEACHER'S DESK")
	tw := tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	for _, row := range seats {
		cells := make([]string, 0, len(row))
		for _, s := range row {
			cells = append(cells, seatCell(s))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	tw.Flush()
}

func seatCell(s view.Seat) string {
	if s.Student == nil {
		return "[ empty ]"
	}
	mark := "."
	switch s.Status {
	case "present":
		mark = "P"
	case "absent":
		mark = "A"
	}
	return fmt.Sprintf("[%s %s]", s.Student.RollNumber, mark)
}

func renderRoster(w io.Writer, r *view.Roster) {
	fmt.Fprintln(w, r.Title())
	if r.Full() {
		fmt.Fprintln(w, "Classroom capacity reached.")
	}

	students := r.Filtered()
	if len(students) == 0 {
		fmt.Fprintln(w, "No students found.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROLL NO.\tNAME\tEMAIL")
	for _, s := range students {
		email := s.Email
		if email == "" {
			email = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.RollNumber, s.Name, email)
	}
	tw.Flush()
}

// printBanner 输出提示条文案，返回是否有内容
func printBanner(w io.Writer, b *view.Banner) bool {
	text, _ := b.Current()
	if text == "" {
		return false
	}
	fmt.Fprintln(w, text)
	return true
}
