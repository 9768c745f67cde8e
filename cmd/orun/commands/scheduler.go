package commands

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/orunio/climate/backend/internal/scheduler"
	"github.com/orunio/climate/backend/internal/scheduler/jobs"
	"github.com/orunio/climate/backend/internal/store"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `파일럿 사이트 정기 수집 스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행
  status  - 작업 상태 및 마지막 저장 결과 조회

Example:
  go run ./cmd/orun scheduler start
  go run ./cmd/orun scheduler list
  go run ./cmd/orun scheduler run pilot_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- pilot_refresh: REFRESH_SCHEDULE (기본 매일 06:00, 파일럿 전체 수집 + 지수 갱신)
- quota_report: 매시간 (프로바이더 호출 한도 로그)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		Args: cobra.NoArgs,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		Args:  cobra.NoArgs,
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	schedulerStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "작업 상태 조회",
		Args:  cobra.NoArgs,
		RunE:  showStatus,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
	schedulerCmd.AddCommand(schedulerStatusCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== ORUN Scheduler ===")

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	PrintList(sched.Jobs())
	fmt.Println("\nPress Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	stats := sched.Stats()
	widths := []int{16, 16}
	PrintTableHeader([]string{"JOB", "SCHEDULE"}, widths)
	for _, name := range sched.Jobs() {
		PrintTableRow([]string{name, stats[name].Schedule}, widths)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Running job: %s\n", jobName)
	if err := sched.RunNow(ctx, jobName); err != nil {
		PrintError(err.Error())
		return fmt.Errorf("run job: %w", err)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed", jobName))
	return nil
}

// showStatus prints schedules and, with a database, the last stored run per pilot
func showStatus(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	fmt.Println("Job Statistics:")
	fmt.Println()
	for _, name := range sched.Jobs() {
		stat := sched.Stats()[name]
		fmt.Printf("📊 %s\n", name)
		fmt.Printf("   Schedule: %s\n", stat.Schedule)
		fmt.Printf("   Total Runs: %d\n", stat.TotalRuns)
		fmt.Println()
	}

	if a.store == nil {
		PrintInfo("DATABASE_URL not set: no stored runs to show")
		return nil
	}

	widths := []int{16, 22, 10, 8}
	PrintTableHeader([]string{"PILOT", "LAST RUN", "COVERAGE", "FAILED"}, widths)
	for _, pilot := range a.table.Pilots() {
		rec, err := a.store.LatestAggregate(cmd.Context(), pilot.Key)
		if errors.Is(err, store.ErrNotFound) {
			PrintTableRow([]string{pilot.Key, "-", "-", "-"}, widths)
			continue
		}
		if err != nil {
			return err
		}
		PrintTableRow([]string{
			pilot.Key,
			rec.Timestamp.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%.0f%%", rec.Coverage()*100),
			fmt.Sprintf("%d", len(rec.Failed())),
		}, widths)
	}
	return nil
}

func initScheduler(cmd *cobra.Command) (*app, *scheduler.Scheduler, error) {
	a, err := newApp(cmd.Context(), appOptions{persistence: true})
	if err != nil {
		return nil, nil, err
	}

	sched := scheduler.New(a.log)

	pilot := jobs.NewPilotRefreshJob(a.agg, a.table.Pilots(), a.cfg.RefreshSchedule, a.log, a.pilotJobOptions()...)
	for _, job := range []scheduler.Job{
		pilot,
		jobs.NewQuotaReportJob(a.tracker, a.log),
	} {
		if err := sched.AddJob(job); err != nil {
			a.close()
			return nil, nil, err
		}
	}

	return a, sched, nil
}
