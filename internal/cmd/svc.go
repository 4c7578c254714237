//go:build windows
// +build windows

package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/ftl/catmux/pkg/config"

	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/eventlog"
	"golang.org/x/sys/windows/svc/mgr"
)

// see https://cs.opensource.google/go/x/sys/+/0f9fa26a:windows/svc/example/install.go

const serviceName = "catmux"

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Run catmux as a Windows service (must not be used on the command line)",
	Run:   service,
}

var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install catmux as a Windows service",
	Run:   install,
}

var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall the Windows service",
	Run:   uninstall,
}

func init() {
	rootCmd.AddCommand(serviceCmd, installCmd, uninstallCmd)
}

func service(cmd *cobra.Command, args []string) {
	runningAsService, err := svc.IsWindowsService()
	if !runningAsService || err != nil {
		log.Fatal("not running as Windows service, do not use the 'service' command on the command line!")
	}
	log.Info("running as Windows service", "version", cmd.Version)

	if err := svc.Run(serviceName, new(serviceHandler)); err != nil {
		log.Fatal("Windows service run failed", "err", err)
	}
}

func install(cmd *cobra.Command, args []string) {
	log.Info("installing catmux as Windows service", "version", cmd.Version)

	serviceFilename, err := exePath()
	if err != nil {
		log.Fatal(err.Error())
	}

	serviceArgs := []string{
		"service",
		"-c", *rootFlags.configPath,
	}

	serviceConfig := mgr.Config{
		StartType:   mgr.StartAutomatic,
		DisplayName: "catmux",
		Description: "Run catmux, the CAT multiplexer, as a Windows service",
	}

	services, err := mgr.Connect()
	if err != nil {
		log.Fatal(err.Error())
	}
	defer services.Disconnect()

	existing, err := services.OpenService(serviceName)
	if err == nil {
		existing.Close()
		log.Fatal(fmt.Sprintf("the %s service already exists", serviceName))
	}

	svc, err := services.CreateService(serviceName, serviceFilename, serviceConfig, serviceArgs...)
	if err != nil {
		log.Fatal(err.Error())
	}
	defer svc.Close()

	if err := eventlog.InstallAsEventCreate(serviceName, eventlog.Error|eventlog.Warning|eventlog.Info); err != nil {
		svc.Delete()
		log.Fatal(fmt.Sprintf("cannot setup log for the %s service: %v", serviceName, err))
	}
	log.Info("the catmux Windows service was successfully installed")
}

func uninstall(cmd *cobra.Command, args []string) {
	log.Info("uninstalling the catmux Windows service")

	services, err := mgr.Connect()
	if err != nil {
		log.Fatal(err.Error())
	}
	defer services.Disconnect()

	svc, err := services.OpenService(serviceName)
	if err != nil {
		log.Fatal(fmt.Sprintf("the %s Windows service is currently not installed: %v", serviceName, err))
	}
	defer svc.Close()

	if err := svc.Delete(); err != nil {
		log.Fatal(err.Error())
	}
	if err := eventlog.Remove(serviceName); err != nil {
		log.Fatal(fmt.Sprintf("cannot remove log for the %s service: %v", serviceName, err))
	}
	log.Info("the catmux Windows service was successfully uninstalled")
}

func exePath() (string, error) {
	prog := os.Args[0]
	p, err := filepath.Abs(prog)
	if err != nil {
		return "", err
	}
	fi, err := os.Stat(p)
	if err == nil {
		if !fi.Mode().IsDir() {
			return p, nil
		}
		err = fmt.Errorf("%s is directory", p)
	}
	if filepath.Ext(p) == "" {
		p += ".exe"
		fi, err := os.Stat(p)
		if err == nil {
			if !fi.Mode().IsDir() {
				return p, nil
			}
			err = fmt.Errorf("%s is directory", p)
		}
	}
	return "", err
}

type serviceHandler struct{}

func (s *serviceHandler) Execute(args []string, requests <-chan svc.ChangeRequest, changes chan<- svc.Status) (ssec bool, errno uint32) {
	const cmdsAccepted = svc.AcceptStop | svc.AcceptShutdown
	changes <- svc.Status{State: svc.StartPending}

	cfg, err := config.Load(*rootFlags.configPath)
	if err != nil {
		log.Fatal("loading configuration failed", "err", err)
	}

	shell, err := startShell(cfg)
	if err != nil {
		log.Fatal("starting catmux failed", "err", err)
	}

	changes <- svc.Status{State: svc.Running, Accepts: cmdsAccepted}
	for {
		select {
		case c := <-requests:
			switch c.Cmd {
			case svc.Interrogate:
				changes <- c.CurrentStatus
			case svc.Stop, svc.Shutdown:
				changes <- svc.Status{State: svc.StopPending}
				shell.Close()
				return
			default:
				log.Warn("unexpected Windows service control request", "request", c.Cmd)
			}
		}
	}
}
