// sdsdemo is a thin exerciser for the SDS runtime, not a product CLI
// (the real MQTT client adapter and a host CLI are both out of scope for
// the runtime itself, §1). It reproduces the "one owner, one device, one
// table" shape of the original implementation's hybrid owner/device demo
// end to end, Go-native, running both roles in one
// process over the in-process transport since a real broker connection
// is an external collaborator this repo does not provide.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/newtron-network/sds-runtime/pkg/demoschema"
	"github.com/newtron-network/sds-runtime/pkg/schema"
	"github.com/newtron-network/sds-runtime/pkg/sds"
	"github.com/newtron-network/sds-runtime/pkg/settings"
	"github.com/newtron-network/sds-runtime/pkg/transport/memtransport"
	"github.com/newtron-network/sds-runtime/pkg/util"
)

var (
	flagIterations int
	flagIntervalMs int
	flagVerbose    bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "sdsdemo",
	Short: "Exercises the SDS runtime with one owner and one device node",
	Long: `sdsdemo wires up an Owner and a Device node for the DeviceDemo table
over an in-process broker and drives a few poll cycles, printing the
config/state/status traffic as it flows (original_source's hybrid demo,
reproduced Go-native in a single process).`,
	RunE: runDemo,
}

func init() {
	rootCmd.Flags().IntVar(&flagIterations, "iterations", 8, "number of poll cycles to run")
	rootCmd.Flags().IntVar(&flagIntervalMs, "interval-ms", 300, "delay between poll cycles")
	rootCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "debug logging")
}

func runDemo(cmd *cobra.Command, args []string) error {
	if flagVerbose {
		_ = util.SetLogLevel("debug")
	} else {
		_ = util.SetLogLevel("warn")
	}

	profile, err := settings.Load()
	if err != nil {
		util.Logger.Warnf("could not load profile, using defaults: %v", err)
		profile = &settings.Profile{}
	}
	if profile.BrokerPasswordHash == "" {
		// No saved credentials yet — prompt once and persist, matching the
		// teacher's settings.Load()/first-run prompt pattern.
		password, err := promptPassword("Broker password (leave blank to skip): ")
		if err == nil && password != "" {
			if err := profile.SetBrokerPassword(password); err != nil {
				util.Logger.Warnf("could not hash broker password: %v", err)
			} else if err := profile.Save(); err != nil {
				util.Logger.Warnf("could not save profile: %v", err)
			}
		}
	}

	ctx := context.Background()
	broker := memtransport.NewBroker()

	owner, err := newNode("demo_owner", broker)
	if err != nil {
		return fmt.Errorf("owner: %w", err)
	}
	defer owner.Close()

	device, err := newNode("demo_device", broker)
	if err != nil {
		return fmt.Errorf("device: %w", err)
	}
	defer device.Close()

	if err := owner.Init(ctx); err != nil {
		return fmt.Errorf("owner init: %w", err)
	}
	if err := device.Init(ctx); err != nil {
		return fmt.Errorf("device init: %w", err)
	}

	ownerTable, err := owner.RegisterTable(ctx, demoschema.TableName, schema.RoleOwner, sds.RegisterOptions{})
	if err != nil {
		return fmt.Errorf("owner register: %w", err)
	}
	deviceTable, err := device.RegisterTable(ctx, demoschema.TableName, schema.RoleDevice, sds.RegisterOptions{})
	if err != nil {
		return fmt.Errorf("device register: %w", err)
	}

	_ = ownerTable.SetConfig("led_control", uint8(0))
	_ = ownerTable.SetConfig("active_device", "demo_device")

	owner.OnStatus(demoschema.TableName, func(table, from string) {
		dev, ok := ownerTable.GetDevice(from)
		if !ok {
			return
		}
		power, _ := dev.GetStatus("power_consumption")
		log, _ := dev.GetStatus("latest_log")
		fmt.Printf("[owner] status from %s: power=%.2fW log=%q online=%v\n", from, power, log, dev.Online)
	})
	owner.OnState(demoschema.TableName, func(table, from string) {
		temp, _ := ownerTable.GetState("temperature")
		humidity, _ := ownerTable.GetState("humidity")
		fmt.Printf("[owner] state from %s: temperature=%.1f humidity=%.1f\n", from, temp, humidity)
	})
	device.OnConfig(demoschema.TableName, func(table string) {
		led, _ := deviceTable.GetConfig("led_control")
		active, _ := deviceTable.GetConfig("active_device")
		fmt.Printf("[device] config: led_control=%v active_device=%q\n", led, active)
	})
	owner.OnDeviceEvicted(func(table, nodeID string) {
		fmt.Printf("[owner] device evicted: %s/%s\n", table, nodeID)
	})

	temp, humidity := float32(22.0), float32(50.0)
	for i := 0; i < flagIterations; i++ {
		temp += 0.3
		humidity -= 0.2
		_ = deviceTable.SetState("temperature", temp)
		_ = deviceTable.SetState("humidity", humidity)
		_ = deviceTable.SetStatus("power_consumption", float32(2.5+0.1*float32(i)))
		_ = deviceTable.SetStatus("latest_log", fmt.Sprintf("cycle %d nominal", i))

		if err := device.Poll(ctx); err != nil {
			return fmt.Errorf("device poll: %w", err)
		}
		if err := owner.Poll(ctx); err != nil {
			return fmt.Errorf("owner poll: %w", err)
		}
		time.Sleep(time.Duration(flagIntervalMs) * time.Millisecond)
	}

	ownerStats := owner.GetStats()
	fmt.Printf("\nowner stats: sent=%d received=%d errors=%d devices=%d\n",
		ownerStats.MessagesSent, ownerStats.MessagesReceived, ownerStats.Errors, ownerTable.DeviceCount())
	return nil
}

func newNode(nodeID string, broker *memtransport.Broker) (*sds.Node, error) {
	return sds.New(sds.NodeConfig{
		NodeID:           nodeID,
		Broker:           "memtransport",
		Transport:        memtransport.NewClient(broker),
		EvictionGraceMs:  2000,
		DeltaSyncEnabled: true,
		FloatTolerance:   0.05,
	})
}

// promptPassword prompts for a password without echoing it to the
// terminal, falling back to a plain read when stdin isn't a tty.
func promptPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	if term.IsTerminal(int(syscall.Stdin)) {
		password, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(password), nil
	}
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
