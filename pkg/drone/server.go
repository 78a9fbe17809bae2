package drone

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/airsimlabs/go-dronechat/internal/log"
	"github.com/airsimlabs/go-dronechat/pkg/bridge"
	"github.com/airsimlabs/go-dronechat/pkg/tools"
)

// handler executes one tool against the simulator.
type handler func(params map[string]any) (map[string]any, error)

// Server exposes the simulator over the actuation wire contract:
// POST /api/v1/mcp/execute and GET /api/v1/mcp/tools, both behind an
// exact-match bearer credential.
type Server struct {
	sim      *Sim
	token    string
	registry *tools.Registry
	handlers map[string]handler
}

// NewServer wires the handler map and verifies it covers the tool
// catalog exactly. A mismatch is a configuration error, caught at
// startup rather than at request time.
func NewServer(sim *Sim, token string, registry *tools.Registry) (*Server, error) {
	if token == "" {
		return nil, fmt.Errorf("drone: empty auth token")
	}

	s := &Server{sim: sim, token: token, registry: registry}
	s.handlers = map[string]handler{
		"takeoff":          s.handleTakeoff,
		"land":             s.handleLand,
		"move_to_position": s.handleMoveTo,
		"hover":            s.handleHover,
		"get_drone_state":  s.handleState,
		"emergency_stop":   s.handleStop,
	}

	for _, def := range registry.List() {
		if _, ok := s.handlers[def.Name]; !ok {
			return nil, fmt.Errorf("drone: no handler for catalog tool %q", def.Name)
		}
	}
	for name := range s.handlers {
		if _, ok := registry.Get(name); !ok {
			return nil, fmt.Errorf("drone: handler %q not in catalog", name)
		}
	}
	return s, nil
}

// RegisterRoutes attaches the actuation endpoints to the app.
func (s *Server) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api/v1/mcp", s.requireToken)
	api.Post("/execute", s.handleExecute)
	api.Get("/tools", s.handleTools)
}

func (s *Server) requireToken(c *fiber.Ctx) error {
	auth := c.Get("Authorization")
	if auth != "Bearer "+s.token {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "invalid bridge token",
		})
	}
	return c.Next()
}

func (s *Server) handleExecute(c *fiber.Ctx) error {
	var req struct {
		Tool       string         `json:"tool"`
		Parameters map[string]any `json:"parameters"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.JSON(bridge.Result{Success: false, Error: "invalid request body"})
	}

	h, ok := s.handlers[req.Tool]
	if !ok {
		return c.JSON(bridge.Result{Success: false, Error: "unknown tool: " + req.Tool})
	}

	if err := s.registry.ValidateCall(req.Tool, req.Parameters); err != nil {
		return c.JSON(bridge.Result{Success: false, Error: err.Error()})
	}

	result, err := h(req.Parameters)
	if err != nil {
		log.Warn("tool execution failed", "tool", req.Tool, "error", err)
		return c.JSON(bridge.Result{Success: false, Error: err.Error()})
	}

	log.Info("tool executed", "tool", req.Tool)
	return c.JSON(bridge.Result{Success: true, Result: result})
}

func (s *Server) handleTools(c *fiber.Ctx) error {
	defs := s.registry.List()
	infos := make([]bridge.ToolInfo, 0, len(defs))
	for _, def := range defs {
		infos = append(infos, bridge.ToolInfo{Name: def.Name, Description: def.Description})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return c.JSON(infos)
}

func (s *Server) handleTakeoff(params map[string]any) (map[string]any, error) {
	altitude := numParam(params, "altitude", 10)
	if err := s.sim.Takeoff(altitude); err != nil {
		return nil, err
	}
	return map[string]any{"message": fmt.Sprintf("Takeoff to %vm completed", altitude)}, nil
}

func (s *Server) handleLand(params map[string]any) (map[string]any, error) {
	if err := s.sim.Land(); err != nil {
		return nil, err
	}
	return map[string]any{"message": "Landing completed"}, nil
}

func (s *Server) handleMoveTo(params map[string]any) (map[string]any, error) {
	pos := Position{
		X: numParam(params, "x", 0),
		Y: numParam(params, "y", 0),
		Z: numParam(params, "z", -10),
	}
	velocity := numParam(params, "velocity", 5)
	if err := s.sim.MoveTo(pos, velocity); err != nil {
		return nil, err
	}
	return map[string]any{
		"message":  fmt.Sprintf("Moved to position (%v, %v, %v)", pos.X, pos.Y, pos.Z),
		"position": map[string]any{"x": pos.X, "y": pos.Y, "z": pos.Z},
	}, nil
}

func (s *Server) handleHover(params map[string]any) (map[string]any, error) {
	if err := s.sim.Hover(); err != nil {
		return nil, err
	}
	return map[string]any{"message": "Hovering at current position"}, nil
}

func (s *Server) handleState(params map[string]any) (map[string]any, error) {
	state := s.sim.State()
	return map[string]any{
		"message": describeState(state),
		"state":   state,
	}, nil
}

func (s *Server) handleStop(params map[string]any) (map[string]any, error) {
	s.sim.EmergencyStop()
	return map[string]any{"message": "Emergency stop executed"}, nil
}

func describeState(state State) string {
	var b strings.Builder
	if state.Flying {
		fmt.Fprintf(&b, "Flying at %.1fm altitude", state.Altitude)
	} else {
		b.WriteString("Landed")
	}
	fmt.Fprintf(&b, ", position (%.1f, %.1f, %.1f)", state.Position.X, state.Position.Y, state.Position.Z)
	return b.String()
}

func numParam(params map[string]any, key string, fallback float64) float64 {
	if v, ok := params[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		}
	}
	return fallback
}
