package main

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"classroom-attendance/internal/view"
)

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

// ────────────────────── 看板 ──────────────────────

func dashboardCmd(a *app) *cobra.Command {
	var (
		search string
		seats  bool
	)
	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show stats and the attendance list or seat grid",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.loadDashboard(cmd.Context()); err != nil {
				return err
			}
			a.dashboard.SetSearch(search)

			out := cmd.OutOrStdout()
			renderStats(out, a.dashboard)
			if seats {
				renderSeats(out, a.dashboard.Seats())
				return nil
			}
			renderRows(out, a.dashboard.Rows(), search != "")
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by name, roll number or email")
	cmd.Flags().BoolVar(&seats, "seats", false, "Render the 7x8 seat grid")
	return cmd
}

func markCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "mark <studentId> <present|absent|unset>",
		Short: "Mark one student for the selected date and period",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := args[1]
			switch status {
			case "present", "absent":
			case "unset":
				status = ""
			default:
				return fmt.Errorf("unknown status %q", args[1])
			}
			if err := a.loadDashboard(cmd.Context()); err != nil {
				return err
			}
			if err := a.dashboard.Mark(cmd.Context(), args[0], status); err != nil {
				return err
			}
			printBanner(cmd.OutOrStdout(), a.dashboard.Banner)
			return nil
		},
	}
}

func toggleCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <row> <col>",
		Short: "Toggle the seat at row/col (1-based) between present and absent",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			row, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid row %q", args[0])
			}
			col, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid col %q", args[1])
			}
			if err := a.loadDashboard(cmd.Context()); err != nil {
				return err
			}
			if err := a.dashboard.ToggleSeat(cmd.Context(), row-1, col-1); err != nil {
				return err
			}
			if !printBanner(cmd.OutOrStdout(), a.dashboard.Banner) {
				fmt.Fprintln(cmd.OutOrStdout(), "Empty seat, nothing to do.")
			}
			return nil
		},
	}
}

func bulkCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "bulk <present|absent>",
		Short: "Mark every filtered student with one status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.dashboard.SetBulkStatus(args[0]); err != nil {
				return err
			}
			if err := a.loadDashboard(cmd.Context()); err != nil {
				return err
			}
			a.dashboard.SetSearch(search)
			n, err := a.dashboard.BulkMark(cmd.Context())
			if err != nil {
				return err
			}
			printBanner(cmd.OutOrStdout(), a.dashboard.Banner)
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %d students.\n", n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Only mark students matching this term")
	return cmd
}

func exportAttendanceCmd(a *app) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export-attendance",
		Short: "Download the selected day's attendance as xlsx",
		RunE: func(cmd *cobra.Command, args []string) error {
			date, _ := a.dashboard.Selection()
			data, name, err := a.api.ExportAttendance(cmd.Context(), date)
			if err != nil {
				return err
			}
			if out == "" {
				out = name
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (defaults to the server-suggested name)")
	return cmd
}

func sweepCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove attendance records that reference deleted students",
		RunE: func(cmd *cobra.Command, args []string) error {
			removed, err := a.api.SweepOrphans(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %d orphaned records.\n", removed)
			return nil
		},
	}
}

// ────────────────────── 花名册 ──────────────────────

func studentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "students",
		Short: "Manage the class roster",
	}
	cmd.AddCommand(
		studentsListCmd(a),
		studentsAddCmd(a),
		studentsEditCmd(a),
		studentsDeleteCmd(a),
		studentsImportCmd(a),
		studentsExportCmd(a, false),
		studentsExportCmd(a, true),
	)
	return cmd
}

func studentsListCmd(a *app) *cobra.Command {
	var search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List students",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.roster.Load(cmd.Context()); err != nil {
				return err
			}
			a.roster.SetSearch(search)
			renderRoster(cmd.OutOrStdout(), a.roster)
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "Filter by name, roll number or email")
	return cmd
}

func studentsAddCmd(a *app) *cobra.Command {
	var f view.Form
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a student",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.roster.Load(cmd.Context()); err != nil {
				return err
			}
			st, err := a.roster.Submit(cmd.Context(), f)
			if err != nil {
				return bannerError(a.roster.Banner, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s) as %s. %s\n", st.Name, st.RollNumber, st.ID, a.roster.Title())
			return nil
		},
	}
	cmd.Flags().StringVar(&f.Name, "name", "", "Student name")
	cmd.Flags().StringVar(&f.RollNumber, "roll", "", "Roll number")
	cmd.Flags().StringVar(&f.Email, "email", "", "Email")
	return cmd
}

func studentsEditCmd(a *app) *cobra.Command {
	var name, roll, email string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Edit a student; only the given flags change",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.roster.Load(cmd.Context()); err != nil {
				return err
			}
			f, err := a.roster.Edit(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("name") {
				f.Name = name
			}
			if cmd.Flags().Changed("roll") {
				f.RollNumber = roll
			}
			if cmd.Flags().Changed("email") {
				f.Email = email
			}
			st, err := a.roster.Submit(cmd.Context(), f)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated %s (%s).\n", st.Name, st.RollNumber)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Student name")
	cmd.Flags().StringVar(&roll, "roll", "", "Roll number")
	cmd.Flags().StringVar(&email, "email", "", "Email (empty string clears it)")
	return cmd
}

func studentsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a student and their attendance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.roster.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			printBanner(cmd.OutOrStdout(), a.roster.Banner)
			return nil
		},
	}
}

func studentsImportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import students from a CSV file (name,rollNumber,email)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			if err := a.roster.Load(cmd.Context()); err != nil {
				return err
			}
			if _, err := a.roster.Import(cmd.Context(), f.Name(), f); err != nil {
				return bannerError(a.roster.Banner, err)
			}
			printBanner(cmd.OutOrStdout(), a.roster.Banner)
			return nil
		},
	}
}

// studentsExportCmd template=true 时导出 56 行模板
func studentsExportCmd(a *app, template bool) *cobra.Command {
	var out string
	use, short, def := "export", "Export the roster as CSV", "students.csv"
	if template {
		use, short, def = "template", "Download a CSV template with 56 placeholder rows", "student_template_56.csv"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			var buf bytes.Buffer
			var err error
			if template {
				err = a.roster.Template(cmd.Context(), &buf)
			} else {
				err = a.roster.Export(cmd.Context(), &buf)
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, buf.Bytes())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", def, `Output file ("-" for stdout)`)
	return cmd
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "Saved %s\n", path)
	return nil
}

// bannerError 客户端拦截的错误以提示条文案返回
func bannerError(b *view.Banner, err error) error {
	if text, isErr := b.Current(); isErr && text != "" {
		return fmt.Errorf("%s", text)
	}
	return err
}
