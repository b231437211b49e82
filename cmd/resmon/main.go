package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gethomeport/resmon/internal/activity"
	"github.com/gethomeport/resmon/internal/alert"
	"github.com/gethomeport/resmon/internal/api"
	"github.com/gethomeport/resmon/internal/monitor"
	"github.com/gethomeport/resmon/internal/store"
	"github.com/gethomeport/resmon/internal/version"
)

const defaultAPIURL = "http://127.0.0.1:8787/api"

var apiURL = defaultAPIURL

func main() {
	if v := os.Getenv("RESMON_API"); v != "" {
		apiURL = v
	}

	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "resmon",
		Short: "resmon CLI - watch and control the resource monitor daemon",
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", apiURL, "resmond API base URL (env RESMON_API)")

	// status command
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status and the latest sample",
		Run:   runStatus,
	}

	// top command
	topCmd := &cobra.Command{
		Use:   "top",
		Short: "Show the top processes from the latest sample",
		Run:   runTop,
	}

	// thresholds commands
	thresholdsCmd := &cobra.Command{
		Use:   "thresholds",
		Short: "Show alert thresholds",
		Run:   runThresholds,
	}
	thresholdsSetCmd := &cobra.Command{
		Use:   "set <cpu> <ram> <disk>",
		Short: "Replace all three alert thresholds (integers 0-100)",
		Args:  cobra.ExactArgs(3),
		Run:   runThresholdsSet,
	}
	thresholdsCmd.AddCommand(thresholdsSetCmd)

	pauseCmd := &cobra.Command{
		Use:   "pause",
		Short: "Pause sampling",
		Run:   func(cmd *cobra.Command, args []string) { setPaused(true) },
	}
	resumeCmd := &cobra.Command{
		Use:   "resume",
		Short: "Resume sampling",
		Run:   func(cmd *cobra.Command, args []string) { setPaused(false) },
	}

	// logs commands
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Print the alert log",
		Run:   runLogs,
	}
	logsCmd.Flags().Int("limit", 100, "Number of most recent lines")

	clearLogsCmd := &cobra.Command{
		Use:   "clear-logs",
		Short: "Clear the alert log and alert history",
		Run:   runClearLogs,
	}

	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "List alert history",
		Run:   runAlerts,
	}
	alertsCmd.Flags().String("resource", "", "Only show alerts for cpu, ram or disk")
	alertsCmd.Flags().Int("limit", 20, "Maximum number of alerts")

	activityCmd := &cobra.Command{
		Use:   "activity",
		Short: "Show recent operator activity",
		Run:   runActivity,
	}
	activityCmd.Flags().Int("limit", 20, "Maximum number of entries")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show CLI and daemon versions",
		Run:   runVersion,
	}

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream live samples and alerts",
		Run:   runWatch,
	}

	rootCmd.AddCommand(statusCmd, topCmd, thresholdsCmd, pauseCmd, resumeCmd,
		logsCmd, clearLogsCmd, alertsCmd, activityCmd, versionCmd, watchCmd)
	return rootCmd
}

func die(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runStatus(cmd *cobra.Command, args []string) {
	var status api.StatusResponse
	if err := call(http.MethodGet, "/status", nil, &status); err != nil {
		die(err)
	}

	state := "running"
	if status.Paused {
		state = "paused"
	}

	fmt.Printf("Daemon:     %s (v%s, up %s)\n", status.Status, status.Version, status.Uptime)
	fmt.Printf("Monitoring: %s every %s, cooldown %s\n", state, status.Config.Interval, status.Config.Cooldown)
	fmt.Printf("Thresholds: CPU %d%%, RAM %d%%, Disk %d%%\n",
		status.Thresholds.CPU, status.Thresholds.RAM, status.Thresholds.Disk)
	fmt.Printf("Alert log:  %s\n", status.Config.LogFile)

	if snap := status.Snapshot; snap != nil {
		s := snap.Sample
		fmt.Println()
		fmt.Printf("CPU:  %.1f%%\n", s.CPUPercent)
		fmt.Printf("RAM:  %.1f%% (%s of %s)\n", s.MemoryPercent,
			humanize.IBytes(s.MemoryUsedBytes), humanize.IBytes(s.MemoryTotalBytes))
		fmt.Printf("Disk: %.1f%% (%s of %s on %s)\n", s.DiskPercent,
			humanize.IBytes(s.DiskUsedBytes), humanize.IBytes(s.DiskTotalBytes), s.DiskPath)
		fmt.Printf("Sampled %s\n", humanize.Time(s.Timestamp))
	} else {
		fmt.Println("\nNo sample yet")
	}

	if version.Compare(status.Version, version.GetVersion()) > 0 {
		fmt.Fprintf(os.Stderr, "\nNote: daemon is v%s, this CLI is v%s\n", status.Version, version.GetVersion())
	}
}

func latestSnapshot() monitor.Snapshot {
	var snap monitor.Snapshot
	err := call(http.MethodGet, "/snapshot", nil, &snap)
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
		fmt.Println("No sample yet - is monitoring paused or just starting?")
		os.Exit(1)
	}
	if err != nil {
		die(err)
	}
	return snap
}

func runTop(cmd *cobra.Command, args []string) {
	snap := latestSnapshot()
	if len(snap.Processes) == 0 {
		fmt.Println("No processes reported")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PID\tNAME\tCPU%\tRAM%")
	for _, p := range snap.Processes {
		fmt.Fprintf(w, "%d\t%s\t%.1f\t%.1f\n", p.PID, p.Name, p.CPUPercent, p.MemoryPercent)
	}
	w.Flush()
}

func printThresholds(th alert.Thresholds) {
	fmt.Printf("CPU:  %d%%\nRAM:  %d%%\nDisk: %d%%\n", th.CPU, th.RAM, th.Disk)
}

func runThresholds(cmd *cobra.Command, args []string) {
	var th alert.Thresholds
	if err := call(http.MethodGet, "/thresholds", nil, &th); err != nil {
		die(err)
	}
	printThresholds(th)
}

func runThresholdsSet(cmd *cobra.Command, args []string) {
	body := map[string]string{"cpu": args[0], "ram": args[1], "disk": args[2]}

	var th alert.Thresholds
	if err := call(http.MethodPut, "/thresholds", body, &th); err != nil {
		die(err)
	}
	fmt.Println("Thresholds updated")
	printThresholds(th)
}

func setPaused(paused bool) {
	path, msg := "/monitor/resume", "Monitoring resumed"
	if paused {
		path, msg = "/monitor/pause", "Monitoring paused"
	}
	if err := call(http.MethodPost, path, nil, nil); err != nil {
		die(err)
	}
	fmt.Println(msg)
}

func runLogs(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	var resp struct {
		Path  string   `json:"path"`
		Lines []string `json:"lines"`
	}
	if err := call(http.MethodGet, "/logs?limit="+strconv.Itoa(limit), nil, &resp); err != nil {
		die(err)
	}

	if len(resp.Lines) == 0 {
		fmt.Println("Alert log is empty")
		return
	}
	for _, line := range resp.Lines {
		fmt.Println(line)
	}
}

func runClearLogs(cmd *cobra.Command, args []string) {
	if err := call(http.MethodDelete, "/logs", nil, nil); err != nil {
		die(err)
	}
	fmt.Println("Alert log cleared")
}

func runAlerts(cmd *cobra.Command, args []string) {
	resource, _ := cmd.Flags().GetString("resource")
	limit, _ := cmd.Flags().GetInt("limit")

	q := url.Values{}
	q.Set("limit", strconv.Itoa(limit))
	if resource != "" {
		q.Set("resource", resource)
	}

	var alerts []store.AlertRecord
	if err := call(http.MethodGet, "/alerts?"+q.Encode(), nil, &alerts); err != nil {
		die(err)
	}

	if len(alerts) == 0 {
		fmt.Println("No alerts recorded")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tRESOURCE\tVALUE\tLIMIT\tMESSAGE")
	for _, a := range alerts {
		fmt.Fprintf(w, "%s\t%s\t%.1f%%\t%d%%\t%s\n",
			humanize.Time(a.CreatedAt), a.Resource, a.Value, a.Threshold, a.Message)
	}
	w.Flush()
}

func runActivity(cmd *cobra.Command, args []string) {
	limit, _ := cmd.Flags().GetInt("limit")

	var entries []activity.Entry
	if err := call(http.MethodGet, "/activity?limit="+strconv.Itoa(limit), nil, &entries); err != nil {
		die(err)
	}

	if len(entries) == 0 {
		fmt.Println("No activity yet")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTYPE\tMESSAGE\tDETAILS")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", humanize.Time(e.Timestamp), e.Type, e.Message, e.Details)
	}
	w.Flush()
}

func runVersion(cmd *cobra.Command, args []string) {
	fmt.Printf("resmon %s (commit %s, built %s)\n", version.GetVersion(), version.GitCommit, version.BuildTime)

	var info map[string]string
	if err := call(http.MethodGet, "/version", nil, &info); err != nil {
		fmt.Printf("resmond: unavailable (%v)\n", err)
		return
	}
	fmt.Printf("resmond %s (commit %s, built %s)\n", info["version"], info["git_commit"], info["build_time"])
}
