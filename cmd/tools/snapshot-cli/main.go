package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/annel0/savestate/internal/game"
	"github.com/annel0/savestate/internal/logging"
	"github.com/annel0/savestate/internal/network"
	"github.com/annel0/savestate/internal/script"
	"github.com/annel0/savestate/internal/snapshot"
	"github.com/annel0/savestate/internal/storage"
	"github.com/annel0/savestate/internal/world"
)

const timeFormat = "2006-01-02T15:04:05Z"

func main() {
	var (
		command  = flag.String("cmd", "inspect", "Command: inspect, verify, slots, export, fetch")
		file     = flag.String("file", "", "Snapshot file (inspect, verify, export output, fetch output)")
		mapFile  = flag.String("map", "", "Map file for verify")
		dataDir  = flag.String("data", "data/saves", "Save store directory (slots, export)")
		slot     = flag.String("slot", "", "Slot name (export, verify)")
		server   = flag.String("server", "localhost:7780", "Join server address (fetch)")
		mapName  = flag.String("mapname", "", "Map name to request (fetch)")
		timeout  = flag.Duration("timeout", 10*time.Second, "Operation timeout")
		hexBytes = flag.Int("hex", 0, "Dump first N bytes (inspect)")
	)
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var err error
	switch *command {
	case "inspect":
		err = inspect(*file, *hexBytes)
	case "verify":
		err = verify(ctx, *file, *dataDir, *slot, *mapFile)
	case "slots":
		err = listSlots(ctx, *dataDir)
	case "export":
		err = export(ctx, *dataDir, *slot, *file)
	case "fetch":
		err = fetch(ctx, *server, *mapName, *file)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", *command)
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("❌ %s failed: %v", *command, err)
	}
}

func inspect(path string, hexBytes int) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	h, err := snapshot.ReadHeader(data)
	if err != nil {
		return err
	}
	fmt.Printf("📦 %s\n", path)
	fmt.Printf("   version:     %d\n", h.Version)
	fmt.Printf("   mode:        %s\n", h.Mode)
	fmt.Printf("   map:         %s\n", h.MapName)
	fmt.Printf("   session:     %s\n", h.SessionID)
	fmt.Printf("   next serial: %d\n", h.NextSerial)
	fmt.Printf("   size:        %d bytes\n", len(data))
	if hexBytes > 0 {
		if hexBytes > len(data) {
			hexBytes = len(data)
		}
		fmt.Println(logging.HexDump(data[:hexBytes]))
	}
	return nil
}

// verify полностью загружает снимок (из файла или слота) поверх карты
func verify(ctx context.Context, path, dataDir, slot, mapFile string) error {
	if mapFile == "" {
		return fmt.Errorf("-map is required")
	}
	res, err := world.LoadMapFile(mapFile)
	if err != nil {
		return err
	}

	var data []byte
	if slot != "" {
		store, err := storage.NewSaveStore(dataDir, 0)
		if err != nil {
			return err
		}
		defer store.Close()
		if data, _, err = store.Load(ctx, slot); err != nil {
			return err
		}
	} else if data, err = os.ReadFile(path); err != nil {
		return err
	}

	st := game.NewEmptyState(res, script.NewDetachedContext())
	report, err := snapshot.New().Load(data, st)
	if err != nil {
		return err
	}
	fmt.Printf("✅ %s snapshot of %s loaded in %s\n", report.Mode, report.MapName, report.Duration)
	fmt.Printf("   players %d, sectors %d, ffloors %d, lines %d\n",
		report.Players, report.Sectors, report.FFloors, report.Lines)
	fmt.Printf("   thinkers %d (mobjs %d), tables %d, mobj vars %d\n",
		report.Thinkers, report.Mobjs, report.Tables, report.MobjVars)
	if report.Unresolved > 0 || report.Skipped > 0 {
		fmt.Printf("⚠️  unresolved refs %d, skipped values %d\n", report.Unresolved, report.Skipped)
	}
	return nil
}

func listSlots(ctx context.Context, dataDir string) error {
	store, err := storage.NewSaveStore(dataDir, 0)
	if err != nil {
		return err
	}
	defer store.Close()

	slots, err := store.List(ctx)
	if err != nil {
		return err
	}
	if len(slots) == 0 {
		fmt.Println("No slots")
		return nil
	}
	fmt.Printf("%-16s %-10s %-8s %-20s %10s %10s\n", "SLOT", "MAP", "MODE", "SAVED", "SIZE", "STORED")
	for _, s := range slots {
		fmt.Printf("%-16s %-10s %-8s %-20s %10d %10d\n",
			s.Name, s.MapName, s.Mode, s.SavedAt.Format(timeFormat), s.Size, s.Stored)
	}
	return nil
}

func export(ctx context.Context, dataDir, slot, path string) error {
	if slot == "" || path == "" {
		return fmt.Errorf("-slot and -file are required")
	}
	store, err := storage.NewSaveStore(dataDir, 0)
	if err != nil {
		return err
	}
	defer store.Close()

	data, info, err := store.Load(ctx, slot)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("💾 Slot %s (%s, %s) → %s, %d bytes\n", slot, info.MapName, info.Mode, path, len(data))
	return nil
}

func fetch(ctx context.Context, addr, mapName, path string) error {
	if mapName == "" || path == "" {
		return fmt.Errorf("-mapname and -file are required")
	}
	codec, err := network.NewFrameCodec(0)
	if err != nil {
		return err
	}
	defer codec.Close()

	data, err := network.FetchSnapshot(ctx, addr, mapName, "snapshot-cli", network.DefaultKCPConfig(), codec)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	fmt.Printf("📥 %s from %s → %s, %d bytes\n", mapName, addr, path, len(data))
	return nil
}
