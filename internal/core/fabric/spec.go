package fabric

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/dep2p/go-linkdisc/config"
	"github.com/dep2p/go-linkdisc/internal/core/inventory"
	"github.com/dep2p/go-linkdisc/pkg/types"
)

// ============================================================================
//                              网络描述
// ============================================================================

// Spec 网络描述，支持 JSON 与 YAML
//
// JSON 示例:
//
//	{
//	  "switches": [
//	    {"id": "00:01", "ports": [{"id": "1"}, {"id": "2", "enabled": false}]},
//	    {"id": "00:02", "ports": [{"id": "1", "properties": {"name": "eth1"}}]}
//	  ],
//	  "links": [{"a": {"switch": "00:01", "port": "1"}, "b": {"switch": "00:02", "port": "1"}}],
//	  "neighbors": [{"switch": "00:02", "port": "2", "system_name": "core-1", "port_id": "Gi0/1"}],
//	  "emit_interval": "30s"
//	}
type Spec struct {
	Switches     []SwitchSpec    `json:"switches" yaml:"switches"`
	Links        []LinkSpec      `json:"links,omitempty" yaml:"links,omitempty"`
	Neighbors    []NeighborSpec  `json:"neighbors,omitempty" yaml:"neighbors,omitempty"`
	EmitInterval config.Duration `json:"emit_interval,omitempty" yaml:"emit_interval,omitempty"`
}

// SwitchSpec 交换机描述
type SwitchSpec struct {
	ID    string     `json:"id" yaml:"id"`
	Down  bool       `json:"down,omitempty" yaml:"down,omitempty"`
	Ports []PortSpec `json:"ports" yaml:"ports"`
}

// PortSpec 端口描述，Enabled 缺省为 true
type PortSpec struct {
	ID         string            `json:"id" yaml:"id"`
	Enabled    *bool             `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Properties map[string]string `json:"properties,omitempty" yaml:"properties,omitempty"`
}

// Endpoint 线缆端点
type Endpoint struct {
	Switch string `json:"switch" yaml:"switch"`
	Port   string `json:"port" yaml:"port"`
}

// ToPort 转换为端口
func (e Endpoint) ToPort() types.Port {
	return types.NewPort(types.ManagedNode(e.Switch), e.Port)
}

// LinkSpec 线缆描述
type LinkSpec struct {
	A Endpoint `json:"a" yaml:"a"`
	B Endpoint `json:"b" yaml:"b"`
}

// NeighborSpec 外部邻居描述
type NeighborSpec struct {
	Switch     string `json:"switch" yaml:"switch"`
	Port       string `json:"port" yaml:"port"`
	ChassisID  string `json:"chassis_id,omitempty" yaml:"chassis_id,omitempty"`
	SystemName string `json:"system_name,omitempty" yaml:"system_name,omitempty"`
	PortID     string `json:"port_id" yaml:"port_id"`
}

// ParseSpec 解析 JSON 网络描述
func ParseSpec(data []byte) (*Spec, error) {
	var spec Spec
	if err := json.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// ParseSpecYAML 解析 YAML 网络描述
func ParseSpecYAML(data []byte) (*Spec, error) {
	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSpec, err)
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	return &spec, nil
}

// LoadSpec 从文件加载网络描述，.yaml/.yml 按 YAML 解析，其余按 JSON
func LoadSpec(path string) (*Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fabric spec: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseSpecYAML(data)
	default:
		return ParseSpec(data)
	}
}

// Validate 检查描述的内部一致性
func (s *Spec) Validate() error {
	ports := make(map[types.Port]struct{})
	switches := make(map[string]struct{}, len(s.Switches))
	for _, sw := range s.Switches {
		if sw.ID == "" {
			return fmt.Errorf("%w: switch with empty id", ErrInvalidSpec)
		}
		if _, dup := switches[sw.ID]; dup {
			return fmt.Errorf("%w: duplicate switch %q", ErrInvalidSpec, sw.ID)
		}
		switches[sw.ID] = struct{}{}
		for _, p := range sw.Ports {
			if p.ID == "" {
				return fmt.Errorf("%w: switch %q has a port with empty id", ErrInvalidSpec, sw.ID)
			}
			ports[types.NewPort(types.ManagedNode(sw.ID), p.ID)] = struct{}{}
		}
	}

	known := func(e Endpoint) error {
		if _, ok := ports[e.ToPort()]; !ok {
			return fmt.Errorf("%w: unknown port %s/%s", ErrInvalidSpec, e.Switch, e.Port)
		}
		return nil
	}
	for _, l := range s.Links {
		if err := known(l.A); err != nil {
			return err
		}
		if err := known(l.B); err != nil {
			return err
		}
	}
	for _, n := range s.Neighbors {
		if err := known(Endpoint{Switch: n.Switch, Port: n.Port}); err != nil {
			return err
		}
		if n.ChassisID == "" && n.SystemName == "" {
			return fmt.Errorf("%w: neighbor on %s/%s needs chassis_id or system_name", ErrInvalidSpec, n.Switch, n.Port)
		}
		if n.PortID == "" {
			return fmt.Errorf("%w: neighbor on %s/%s needs port_id", ErrInvalidSpec, n.Switch, n.Port)
		}
	}
	if s.EmitInterval < 0 {
		return fmt.Errorf("%w: negative emit_interval", ErrInvalidSpec)
	}
	return nil
}

// Build 按描述填充清单与模拟网络
//
// 交换机先加入模拟网络再登记到清单，保证发现引擎看到端口时链路已可用。
func (s *Spec) Build(inv *inventory.Inventory, f *Fabric) error {
	for _, sw := range s.Switches {
		node := types.ManagedNode(sw.ID)
		if err := f.AddSwitch(node); err != nil {
			return err
		}
		if sw.Down {
			if err := f.SetOperational(node, false); err != nil {
				return err
			}
		}
	}
	for _, l := range s.Links {
		if err := f.Connect(l.A.ToPort(), l.B.ToPort()); err != nil {
			return err
		}
	}
	for _, n := range s.Neighbors {
		port := Endpoint{Switch: n.Switch, Port: n.Port}.ToPort()
		if err := f.AddForeignNeighbor(port, n.ChassisID, n.SystemName, n.PortID); err != nil {
			return err
		}
	}

	if inv == nil {
		return nil
	}
	for _, sw := range s.Switches {
		node := types.ManagedNode(sw.ID)
		if err := inv.AddNode(node); err != nil {
			return err
		}
		for _, p := range sw.Ports {
			enabled := p.Enabled == nil || *p.Enabled
			if err := inv.AddPort(types.NewPort(node, p.ID), enabled, types.PropertySet(p.Properties)); err != nil {
				return err
			}
		}
	}
	logger.Info("模拟网络已构建", "switches", len(s.Switches), "links", len(s.Links), "neighbors", len(s.Neighbors))
	return nil
}
