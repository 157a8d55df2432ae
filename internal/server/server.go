// Package server exposes C1's read queries and the settings/purge
// mutations over JSON-RPC, per spec.md §6 ("Optional HTTP/GraphQL UI (out
// of core): exposes read queries for Systems/Games/Roms/Romfiles and
// mutations for settings and system purge; the core provides the service
// functions; transport is external"). Grounded on
// uwedeportivo-romba/cmds/rombaserver/main.go's gorilla/rpc wiring
// (rpc.NewServer, RegisterCodec(json2...), http.Handle("/jsonrpc/")); the
// Service methods themselves follow gorilla/rpc's own convention
// (exported method, *http.Request, args, reply, error) rather than
// romba's single command-dispatch Execute endpoint, since our surface is a
// handful of fixed read/mutation calls, not a terminal emulator.
package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"

	"github.com/gorilla/rpc/v2"
	"github.com/gorilla/rpc/v2/json2"

	"github.com/oxyromon/oxyromon/internal/catalog"
)

// Service implements the JSON-RPC methods. Every method is read-only
// against *catalog.Store except SetSetting/UnsetSetting/PurgeSystem, which
// is the exact "settings and system purge" mutation surface spec.md §6
// names; Sort/Convert/Export/Rebuild stay core-only CLI operations, not
// remote-invocable, since they touch the filesystem under ROM_DIRECTORY.
type Service struct {
	Store *catalog.Store
}

// NewService wraps store for JSON-RPC registration.
func NewService(store *catalog.Store) *Service {
	return &Service{Store: store}
}

type ListSystemsArgs struct{}

type ListSystemsReply struct {
	Systems []catalog.System `json:"systems"`
}

func (s *Service) ListSystems(r *http.Request, args *ListSystemsArgs, reply *ListSystemsReply) error {
	systems, err := s.Store.ListSystems(r.Context())
	if err != nil {
		return rpcError(err)
	}
	reply.Systems = systems
	return nil
}

type GetSystemArgs struct {
	ID catalog.SystemID `json:"id"`
}

type GetSystemReply struct {
	System catalog.System `json:"system"`
}

func (s *Service) GetSystem(r *http.Request, args *GetSystemArgs, reply *GetSystemReply) error {
	sys, err := s.Store.SystemByID(r.Context(), args.ID)
	if err != nil {
		return rpcError(err)
	}
	reply.System = sys
	return nil
}

type ListGamesArgs struct {
	System catalog.SystemID `json:"system"`
}

type ListGamesReply struct {
	Games []catalog.Game `json:"games"`
}

func (s *Service) ListGames(r *http.Request, args *ListGamesArgs, reply *ListGamesReply) error {
	games, err := s.Store.GamesOfSystem(r.Context(), args.System)
	if err != nil {
		return rpcError(err)
	}
	reply.Games = games
	return nil
}

type GetGameArgs struct {
	ID catalog.GameID `json:"id"`
}

type GetGameReply struct {
	Game catalog.Game `json:"game"`
}

func (s *Service) GetGame(r *http.Request, args *GetGameArgs, reply *GetGameReply) error {
	game, err := s.Store.GameByID(r.Context(), args.ID)
	if err != nil {
		return rpcError(err)
	}
	reply.Game = game
	return nil
}

type ListRomsArgs struct {
	Game catalog.GameID `json:"game"`
}

type ListRomsReply struct {
	Roms []catalog.Rom `json:"roms"`
}

func (s *Service) ListRoms(r *http.Request, args *ListRomsArgs, reply *ListRomsReply) error {
	roms, err := s.Store.RomsOfGame(r.Context(), args.Game)
	if err != nil {
		return rpcError(err)
	}
	reply.Roms = roms
	return nil
}

type GetRomfileArgs struct {
	ID catalog.RomfileID `json:"id"`
}

type GetRomfileReply struct {
	Romfile catalog.Romfile `json:"romfile"`
}

func (s *Service) GetRomfile(r *http.Request, args *GetRomfileArgs, reply *GetRomfileReply) error {
	rf, err := s.Store.RomfileByID(r.Context(), args.ID)
	if err != nil {
		return rpcError(err)
	}
	reply.Romfile = rf
	return nil
}

type ListSettingsArgs struct{}

type ListSettingsReply struct {
	Settings map[string]string `json:"settings"`
}

func (s *Service) ListSettings(r *http.Request, args *ListSettingsArgs, reply *ListSettingsReply) error {
	settings, err := s.Store.ListSettings(r.Context())
	if err != nil {
		return rpcError(err)
	}
	reply.Settings = settings
	return nil
}

type SetSettingArgs struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type SetSettingReply struct{}

func (s *Service) SetSetting(r *http.Request, args *SetSettingArgs, reply *SetSettingReply) error {
	if err := s.Store.SetSetting(r.Context(), args.Key, args.Value); err != nil {
		return rpcError(err)
	}
	return nil
}

type UnsetSettingArgs struct {
	Key string `json:"key"`
}

type UnsetSettingReply struct{}

func (s *Service) UnsetSetting(r *http.Request, args *UnsetSettingArgs, reply *UnsetSettingReply) error {
	if err := s.Store.UnsetSetting(r.Context(), args.Key); err != nil {
		return rpcError(err)
	}
	return nil
}

type PurgeSystemArgs struct {
	System catalog.SystemID `json:"system"`
}

type PurgeSystemReply struct{}

func (s *Service) PurgeSystem(r *http.Request, args *PurgeSystemArgs, reply *PurgeSystemReply) error {
	if err := s.Store.PurgeSystem(r.Context(), args.System); err != nil {
		return rpcError(err)
	}
	return nil
}

// rpcError maps catalog sentinel errors to json2 error codes so a caller can
// branch on err.Code without string matching, and falls back to the raw
// message for anything else (a Fatal, per spec.md §7).
func rpcError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return &json2.Error{Code: json2.E_BAD_PARAMS, Message: err.Error()}
	case errors.Is(err, catalog.ErrConflict):
		return &json2.Error{Code: json2.E_INVALID_REQ, Message: err.Error()}
	default:
		return &json2.Error{Code: json2.E_INTERNAL, Message: err.Error()}
	}
}

// Server owns the HTTP listener over a Service; Run blocks until ctx is
// canceled or the listener errors, closing the listener on either path.
// Grounded on rombaserver/main.go's rpc.NewServer/RegisterCodec/
// RegisterService/http.Handle("/jsonrpc/") wiring; the signal.Notify
// shutdown handler there is replaced by ctx cancellation, since
// cmd/oxyromon wires its own signal handling once for every subcommand
// rather than duplicating it per server.
type Server struct {
	Logger  *log.Logger
	Service *Service
}

// NewServer returns a Server logging to stderr by default.
func NewServer(store *catalog.Store) *Server {
	return &Server{
		Logger:  log.New(os.Stderr, "", log.LstdFlags),
		Service: NewService(store),
	}
}

// Run serves JSON-RPC on addr (host:port, per the `-a`/`-p` CLI flags of
// spec.md §6) until ctx is done.
func (srv *Server) Run(ctx context.Context, addr string) error {
	rs := rpc.NewServer()
	rs.RegisterCodec(json2.NewCustomCodec(&rpc.CompressionSelector{}), "application/json")
	if err := rs.RegisterService(srv.Service, ""); err != nil {
		return fmt.Errorf("server: register service: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/jsonrpc/", rs)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}

	httpServer := &http.Server{Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Serve(ln)
	}()

	srv.Logger.Printf("serving JSON-RPC on %s/jsonrpc/", ln.Addr())

	select {
	case <-ctx.Done():
		return httpServer.Close()
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
