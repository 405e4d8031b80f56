// Package main attendancectl：在终端中使用考勤看板与花名册管理
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"classroom-attendance/config"
	"classroom-attendance/internal/client"
	"classroom-attendance/internal/view"
	applogger "classroom-attendance/pkg/logger"
)

const (
	Version = "0.1.0"
	appName = "attendancectl"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app 单次命令执行所需的依赖
type app struct {
	logger    *zap.Logger
	api       *client.API
	students  *client.StudentStore
	dashboard *view.Dashboard
	roster    *view.Roster
}

func rootCmd() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("ATTENDCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	a := &app{}

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Classroom attendance from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(v)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("server", "http://localhost:8080", "Attendance API base URL")
	pf.String("date", "", "Date (YYYY-MM-DD), defaults to today")
	pf.String("period", "1", "Period")
	pf.Int("periods", 6, "Number of periods per day")
	pf.Int("capacity", 56, "Classroom capacity")
	pf.String("start", "09:00", "Start time used when marking present")
	pf.String("end", "11:00", "End time used when marking present")
	pf.Duration("timeout", 15*time.Second, "HTTP timeout")
	pf.String("log-level", "warn", "Log level (debug, info, warn, error)")
	_ = v.BindPFlags(pf)

	cmd.AddCommand(
		dashboardCmd(a),
		markCmd(a),
		toggleCmd(a),
		bulkCmd(a),
		studentsCmd(a),
		exportAttendanceCmd(a),
		sweepCmd(a),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)
	return cmd
}

// init 构建 API 客户端与视图；flag 优先，其次 ATTENDCTL_* 环境变量
func (a *app) init(v *viper.Viper) error {
	logger, err := applogger.NewLogger(&config.LogConfig{Level: v.GetString("log-level"), Format: "console"}, appName)
	if err != nil {
		return err
	}
	a.logger = logger

	api := client.NewAPI(v.GetString("server"), client.WithHTTPClient(newHTTPClient(v.GetDuration("timeout"))))
	a.api = api
	a.students = client.NewStudentStore(api)
	a.dashboard = view.NewDashboard(api, a.students, view.DashboardOptions{
		Date:    v.GetString("date"),
		Period:  v.GetString("period"),
		Periods: v.GetInt("periods"),
	})
	a.roster = view.NewRoster(api, a.students, v.GetInt("capacity"), 0)
	a.roster.OnDelete(a.dashboard.InvalidateAttendance)

	if err := a.dashboard.SetTimeRange(v.GetString("start"), v.GetString("end")); err != nil {
		return fmt.Errorf("invalid time range: %w", err)
	}

	date, period := a.dashboard.Selection()
	logger.Debug("attendancectl 初始化完成",
		zap.String("server", v.GetString("server")),
		zap.String("date", date),
		zap.String("period", period),
	)
	return nil
}

// loadDashboard 校验选择条件后拉取数据
func (a *app) loadDashboard(ctx context.Context) error {
	date, period := a.dashboard.Selection()
	if err := a.dashboard.SelectDate(ctx, date); err != nil {
		a.logger.Debug("加载看板失败", zap.String("date", date), zap.Error(err))
		return err
	}
	if err := a.dashboard.SelectPeriod(ctx, period); err != nil {
		a.logger.Debug("加载看板失败", zap.String("period", period), zap.Error(err))
		return err
	}
	return nil
}
