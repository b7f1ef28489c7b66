package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/shravan4518/ppsrest/pkg/client"
	"github.com/shravan4518/ppsrest/pkg/config"
	"github.com/shravan4518/ppsrest/pkg/database"
	"github.com/shravan4518/ppsrest/pkg/database/models"
	"github.com/shravan4518/ppsrest/pkg/database/repositories"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: pps-admin <command> [args...]")
		fmt.Println("Commands:")
		fmt.Println("  login <device-name>")
		fmt.Println("  configuration <device-name>")
		fmt.Println("  profiler-config <device-name>")
		fmt.Println("  devices <device-name> [category]")
		fmt.Println("  delete-device <device-name> <mac>")
		fmt.Println("  create-admin <username> <password>")
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "login":
		c := mustClient(ctx, cfg, deviceArg())
		fmt.Printf("Logged in to %s\n", c.Host())
		fmt.Printf("api_key: %s\n", c.Token())

	case "configuration":
		c := mustClient(ctx, cfg, deviceArg())
		resp, err := c.Get(ctx, client.APIVersion+"/configuration/", nil)
		if err != nil {
			log.Fatalf("Failed to fetch configuration: %v", err)
		}
		fmt.Printf("Status: %d\n", resp.StatusCode)
		fmt.Println(string(resp.Body))

	case "profiler-config":
		c := mustClient(ctx, cfg, deviceArg())
		pc, err := c.ProfilerConfiguration(ctx)
		if err != nil {
			log.Fatalf("Failed to fetch profiler configuration: %v", err)
		}
		fmt.Printf("Profiler: %s\n", pc.ProfilerName)
		fmt.Printf("DHCPv4: %t  DHCPv6: %t  SNMP: %t\n", pc.DHCPv4Enabled, pc.DHCPv6Enabled, pc.SNMPEnabled)
		if pc.DeviceAttributeServer != "" {
			fmt.Printf("Device Attribute Server: %s (poll every %d minutes)\n",
				pc.DeviceAttributeServer, pc.PollingIntervalMinutes)
		}
		if len(pc.AdditionalCollectors) > 0 {
			fmt.Printf("Additional collectors: %v\n", pc.AdditionalCollectors)
		}

	case "devices":
		c := mustClient(ctx, cfg, deviceArg())
		filter := client.DeviceFilter{}
		if len(os.Args) > 3 {
			filter.Category = os.Args[3]
		}
		devices, err := c.ListDevices(ctx, filter)
		if err != nil {
			log.Fatalf("Failed to list devices: %v", err)
		}
		fmt.Printf("Found %d devices:\n", len(devices))
		for _, d := range devices {
			fmt.Printf("- %s  %s  %s/%s (%s)\n", d.MACAddress, d.IPAddress, d.Category, d.OS, d.Source)
		}

	case "delete-device":
		if len(os.Args) < 4 {
			fmt.Println("Usage: pps-admin delete-device <device-name> <mac>")
			os.Exit(1)
		}
		c := mustClient(ctx, cfg, deviceArg())
		if err := c.DeleteDevice(ctx, os.Args[3]); err != nil {
			log.Fatalf("Failed to delete device: %v", err)
		}
		fmt.Printf("Device %s deleted\n", os.Args[3])

	case "create-admin":
		if len(os.Args) < 4 {
			fmt.Println("Usage: pps-admin create-admin <username> <password>")
			os.Exit(1)
		}
		admin, err := createAdminDirect(cfg, os.Args[2], os.Args[3])
		if err != nil {
			log.Fatalf("Failed to create admin: %v", err)
		}
		fmt.Printf("Admin created successfully!\n")
		fmt.Printf("ID: %s\n", admin.ID)
		fmt.Printf("Username: %s\n", admin.Username)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func deviceArg() string {
	if len(os.Args) < 3 {
		fmt.Println("A device name from the configuration is required")
		os.Exit(1)
	}
	return os.Args[2]
}

func mustClient(ctx context.Context, cfg *config.Config, deviceName string) *client.Client {
	dev, err := cfg.DeviceByName(deviceName)
	if err != nil {
		log.Fatalf("Failed to resolve device: %v", err)
	}

	c, err := client.New(ctx, dev.Management, dev.RestAdmin.Username, dev.RestAdmin.Password, client.Options{
		Realm:             cfg.Client.Realm,
		Timeout:           cfg.Client.Timeout,
		InsecureSkipTLS:   cfg.Client.InsecureSkipTLS,
		RequestsPerSecond: cfg.Client.RequestsPerSecond,
	})
	if err != nil {
		log.Fatalf("Failed to create client for %s: %v", deviceName, err)
	}
	return c
}

// createAdminDirect adds an admin account straight into the simulator's
// database, bypassing the API. Useful for seeding a fresh simulator.
func createAdminDirect(cfg *config.Config, username, password string) (*models.AdminUser, error) {
	db, err := database.NewConnection(cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Failed to close database connection: %v", err)
		}
	}()

	if err := db.AutoMigrate(); err != nil {
		return nil, err
	}

	adminRepo := repositories.NewAdminUserRepository(db.DB)
	if _, err := adminRepo.GetByUsername(username); err == nil {
		return nil, fmt.Errorf("admin %q already exists", username)
	}

	admin := &models.AdminUser{
		Username: username,
		Enabled:  true,
	}
	if err := admin.SetPassword(password); err != nil {
		return nil, err
	}
	if err := adminRepo.Create(admin); err != nil {
		return nil, err
	}

	return admin, nil
}
