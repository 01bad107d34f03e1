package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pkordes/fleet-logbook/backend/internal/domain"
	"github.com/pkordes/fleet-logbook/backend/internal/maintenance"
	"github.com/pkordes/fleet-logbook/backend/internal/store"
)

type alertStatusOptions struct {
	file          string
	redisAddr     string
	redisPassword string
	deviceID      string
	odometer      int
	now           func() time.Time
}

func alertStatusCmd() *cobra.Command {
	opts := alertStatusOptions{now: time.Now}

	cmd := &cobra.Command{
		Use:   "alert-status",
		Short: "Show maintenance alert status for a device's live trip",
		Long: `Load the live trip of a device and evaluate its maintenance alerts.

The trip is read from Redis (the same key the API server writes) or from a
JSON file holding a trip snapshot.

Examples:
  logbookctl alert-status --device van-12
  logbookctl alert-status --file trip.json --odometer 154300`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			trip, err := opts.load(cmd)
			if err != nil {
				return err
			}
			odometer := trip.CurrentOdometer()
			if opts.odometer > 0 {
				odometer = opts.odometer
			}
			return writeAlertTable(cmd, trip, maintenance.Evaluate(trip.MaintenanceAlerts, odometer, opts.now()), odometer)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.file, "file", "", "read the trip from a JSON file instead of Redis")
	f.StringVar(&opts.redisAddr, "redis-addr", envOr("REDIS_ADDR", "localhost:6379"), "Redis address (default $REDIS_ADDR)")
	f.StringVar(&opts.redisPassword, "redis-password", os.Getenv("REDIS_PASSWORD"), "Redis password (default $REDIS_PASSWORD)")
	f.StringVar(&opts.deviceID, "device", envOr("DEVICE_ID", "default"), "device whose live trip to read (default $DEVICE_ID)")
	f.IntVar(&opts.odometer, "odometer", 0, "evaluate against this reading instead of the trip's")

	return cmd
}

func (o alertStatusOptions) load(cmd *cobra.Command) (domain.Trip, error) {
	if o.file != "" {
		raw, err := os.ReadFile(o.file)
		if err != nil {
			return domain.Trip{}, err
		}
		var trip domain.Trip
		if err := json.Unmarshal(raw, &trip); err != nil {
			return domain.Trip{}, fmt.Errorf("decode %s: %w", o.file, err)
		}
		return trip, nil
	}

	rdb := store.ConnectRedis(o.redisAddr, o.redisPassword)
	if rdb == nil {
		return domain.Trip{}, fmt.Errorf("--redis-addr or --file is required")
	}
	defer rdb.Close()

	trip, ok, err := store.NewRedis(rdb, o.deviceID).Load(cmd.Context())
	if err != nil {
		return domain.Trip{}, err
	}
	if !ok {
		return domain.Trip{}, fmt.Errorf("no live trip stored for device %q", o.deviceID)
	}
	return trip, nil
}

func writeAlertTable(cmd *cobra.Command, trip domain.Trip, statuses []maintenance.AlertStatus, odometer int) error {
	cmd.Printf("%s %s, driver %s, odometer %d km\n\n", trip.VehicleClass, trip.Plate, trip.DriverName, odometer)
	if len(statuses) == 0 {
		cmd.Println("no maintenance alerts")
		return nil
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ALERT\tKIND\tSTATE\tSTATUS")
	for _, s := range statuses {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Alert.Name, s.Alert.Kind, s.Result.State, s.Text)
	}
	return tw.Flush()
}
