package definition

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/viant/afs"
	"github.com/viant/procflow/internal/yml"
	"github.com/viant/procflow/model"
	"gopkg.in/yaml.v3"
)

// Loader reads YAML definitions from any afs supported storage
type Loader struct {
	fs afs.Service
}

// Load downloads and decodes the definition at URL; ".yaml" is appended when URL has no extension
func (l *Loader) Load(ctx context.Context, URL string) (*model.Definition, error) {
	if filepath.Ext(URL) == "" {
		URL += ".yaml"
	}
	data, err := l.fs.DownloadWithURL(ctx, URL)
	if err != nil {
		return nil, fmt.Errorf("failed to load definition from %s: %w", URL, err)
	}
	definition, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode definition from %s: %w", URL, err)
	}
	definition.Source = &model.Source{URL: URL}
	if definition.ID == "" {
		base := filepath.Base(URL)
		definition.ID = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if definition.Name == "" {
		definition.Name = definition.ID
	}
	if issues := definition.Validate(); len(issues) > 0 {
		return nil, errors.Join(issues...)
	}
	return definition, nil
}

// LoadAll loads every .yaml or .yml definition under baseURL
func (l *Loader) LoadAll(ctx context.Context, baseURL string) ([]*model.Definition, error) {
	objects, err := l.fs.List(ctx, baseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list definitions in %s: %w", baseURL, err)
	}
	var result []*model.Definition
	for _, object := range objects {
		if object.IsDir() {
			continue
		}
		switch filepath.Ext(object.Name()) {
		case ".yaml", ".yml":
		default:
			continue
		}
		definition, err := l.Load(ctx, object.URL())
		if err != nil {
			return nil, err
		}
		result = append(result, definition)
	}
	return result, nil
}

// Decode parses a YAML definition; ${env.KEY} expressions are expanded first
func Decode(data []byte) (*model.Definition, error) {
	var node yaml.Node
	if err := yaml.Unmarshal([]byte(ExpandEnv(string(data))), &node); err != nil {
		return nil, err
	}
	root := (*yml.Node)(&node).Root()
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("definition should be a mapping")
	}
	definition := &model.Definition{Kind: model.DefaultKind}
	err := root.Pairs(func(key string, value *yml.Node) error {
		switch strings.ToLower(key) {
		case "id":
			definition.ID = value.Text()
		case "name":
			definition.Name = value.Text()
		case "version":
			definition.Version = value.Text()
		case "kind":
			definition.Kind = value.Text()
		case "metadata":
			if metadata, ok := value.Interface().(map[string]interface{}); ok {
				definition.Metadata = metadata
			}
		case "nodes":
			return value.Items(func(_ int, item *yml.Node) error {
				node := &model.Node{ID: item.Lookup("id").Text(), Name: item.Lookup("name").Text(), Type: item.Lookup("type").Text()}
				if metadata := item.Lookup("metadata"); metadata != nil {
					node.Metadata, _ = metadata.Interface().(map[string]interface{})
				}
				definition.Nodes = append(definition.Nodes, node)
				return nil
			})
		case "startnodes":
			return value.Items(func(_ int, item *yml.Node) error {
				startNode, err := decodeStartNode(item)
				if err != nil {
					return err
				}
				definition.StartNodes = append(definition.StartNodes, startNode)
				return nil
			})
		case "exceptionhandlers":
			return value.Items(func(_ int, item *yml.Node) error {
				definition.ExceptionHandlers = append(definition.ExceptionHandlers, &model.ExceptionHandler{
					Code:   item.Lookup("code").Text(),
					Signal: item.Lookup("signal").Text(),
				})
				return nil
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return definition, nil
}

func decodeStartNode(node *yml.Node) (*model.StartNode, error) {
	startNode := &model.StartNode{}
	err := node.Pairs(func(key string, value *yml.Node) error {
		switch strings.ToLower(key) {
		case "id":
			startNode.ID = value.Text()
		case "name":
			startNode.Name = value.Text()
		case "timer":
			timer, err := decodeTimer(value)
			if err != nil {
				return fmt.Errorf("start node %s: %w", startNode.ID, err)
			}
			startNode.Timer = timer
		case "triggers":
			return value.Items(func(_ int, item *yml.Node) error {
				trigger, err := decodeTrigger(item)
				if err != nil {
					return fmt.Errorf("start node %s: %w", startNode.ID, err)
				}
				startNode.Triggers = append(startNode.Triggers, trigger)
				return nil
			})
		}
		return nil
	})
	return startNode, err
}

func decodeTrigger(node *yml.Node) (*model.Trigger, error) {
	trigger := &model.Trigger{Type: model.TriggerEvent}
	err := node.Pairs(func(key string, value *yml.Node) error {
		switch strings.ToLower(key) {
		case "type":
			trigger.Type = model.TriggerType(strings.ToLower(value.Text()))
		case "topic":
			trigger.Filters = append(trigger.Filters, &model.EventTypeFilter{Type: value.Text()})
		case "inmappings":
			switch value.Kind {
			case yaml.MappingNode:
				return value.Pairs(func(name string, mapped *yml.Node) error {
					trigger.InMappings = append(trigger.InMappings, &model.Mapping{Name: name, Value: mapped.Text()})
					return nil
				})
			case yaml.SequenceNode:
				return value.Items(func(_ int, item *yml.Node) error {
					trigger.InMappings = append(trigger.InMappings, &model.Mapping{Name: item.Lookup("name").Text(), Value: item.Lookup("value").Text()})
					return nil
				})
			default:
				return fmt.Errorf("inMappings should be a mapping or a sequence")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	switch trigger.Type {
	case model.TriggerEvent, model.TriggerConstraint:
	default:
		return nil, fmt.Errorf("unsupported trigger type %q", trigger.Type)
	}
	return trigger, nil
}

func decodeTimer(node *yml.Node) (*model.Timer, error) {
	kind, err := model.ParseTimerKind(node.Lookup("kind").Text())
	if err != nil {
		return nil, err
	}
	return &model.Timer{
		Kind:   kind,
		Delay:  node.Lookup("delay").Text(),
		Period: node.Lookup("period").Text(),
		Date:   node.Lookup("date").Text(),
	}, nil
}

// NewLoader creates a loader; a nil fs uses afs.New()
func NewLoader(fs afs.Service) *Loader {
	if fs == nil {
		fs = afs.New()
	}
	return &Loader{fs: fs}
}
