// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"
)

var templateComments = map[string]string{
	"token":      "Platform bot token.",
	"prefix":     "Command prefix.",
	"permission": "Global trust levels. Each key is a level (moderator, admin, owner) and lists user ids.",
	"database":   "Member store. driver is sqlite (url is a file path) or postgres (url is a connection URL).",
	"log_format": "json or text.",
	"workers":    "Events processed concurrently.",
}

// Template returns the configuration written when no file exists.
func Template() *Config {
	cfg := Default()
	cfg.Token = TemplateToken
	cfg.Permission = map[string][]UserID{
		"moderator": {},
		"admin":     {},
		"owner":     {},
	}
	return cfg
}

// WriteTemplate writes a commented template configuration to path.
func WriteTemplate(path string) error {
	var root yaml.Node
	if err := root.Encode(Template()); err != nil {
		return oops.Code(CodeInvalid).With("path", path).Wrapf(err, "encode template")
	}
	root.HeadComment = "holobot configuration"
	for i := 0; i+1 < len(root.Content); i += 2 {
		if c, ok := templateComments[root.Content[i].Value]; ok {
			root.Content[i].HeadComment = c
		}
	}

	data, err := encode(&root)
	if err != nil {
		return oops.Code(CodeInvalid).With("path", path).Wrap(err)
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return oops.Code(CodeInvalid).With("path", path).Wrap(err)
		}
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return oops.Code(CodeInvalid).With("path", path).Wrap(err)
	}
	return nil
}

// UpdateKey sets a single dotted key in the YAML file at path, leaving the rest
// of the file (comments and key order included) untouched. Missing keys are
// appended to their mapping.
func UpdateKey(path, key string, value any) error {
	raw, err := os.ReadFile(path) //nolint:gosec // operator-supplied config path
	if err != nil {
		return oops.Code(CodeInvalid).With("path", path).With("key", key).Wrap(err)
	}

	var doc yaml.Node
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return oops.Code(CodeInvalid).With("path", path).Wrapf(err, "parse config")
	}
	if doc.Kind == 0 {
		doc = yaml.Node{Kind: yaml.DocumentNode, Content: []*yaml.Node{{Kind: yaml.MappingNode, Tag: "!!map"}}}
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) != 1 || doc.Content[0].Kind != yaml.MappingNode {
		return oops.Code(CodeInvalid).With("path", path).Errorf("config root is not a mapping")
	}

	var encoded yaml.Node
	if err := encoded.Encode(value); err != nil {
		return oops.Code(CodeInvalid).With("key", key).Wrapf(err, "encode value")
	}

	mapping := doc.Content[0]
	parts := strings.Split(key, ".")
	for i, part := range parts {
		last := i == len(parts)-1
		child := lookup(mapping, part)
		switch {
		case child == nil && last:
			mapping.Content = append(mapping.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: part}, &encoded)
		case child == nil:
			child = &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
			mapping.Content = append(mapping.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: part}, child)
			mapping = child
		case last:
			encoded.HeadComment = child.HeadComment
			encoded.LineComment = child.LineComment
			encoded.FootComment = child.FootComment
			*child = encoded
		case child.Kind != yaml.MappingNode:
			return oops.Code(CodeInvalid).With("key", key).Errorf("%s is not a mapping", strings.Join(parts[:i+1], "."))
		default:
			mapping = child
		}
	}

	data, err := encode(&doc)
	if err != nil {
		return oops.Code(CodeInvalid).With("path", path).Wrap(err)
	}
	return replaceFile(path, data)
}

func lookup(mapping *yaml.Node, key string) *yaml.Node {
	for i := 0; i+1 < len(mapping.Content); i += 2 {
		if mapping.Content[i].Value == key {
			return mapping.Content[i+1]
		}
	}
	return nil
}

func encode(n *yaml.Node) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(n); err != nil {
		return nil, oops.Wrapf(err, "encode yaml")
	}
	if err := enc.Close(); err != nil {
		return nil, oops.Wrapf(err, "encode yaml")
	}
	return buf.Bytes(), nil
}

// replaceFile writes data beside path and renames it into place.
func replaceFile(path string, data []byte) error {
	mode := os.FileMode(0o600)
	if info, err := os.Stat(path); err == nil {
		mode = info.Mode().Perm()
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return oops.Code(CodeInvalid).With("path", path).Wrap(err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return oops.Code(CodeInvalid).With("path", path).Wrap(err)
	}
	if err := tmp.Chmod(mode); err != nil {
		_ = tmp.Close()
		return oops.Code(CodeInvalid).With("path", path).Wrap(err)
	}
	if err := tmp.Close(); err != nil {
		return oops.Code(CodeInvalid).With("path", path).Wrap(err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return oops.Code(CodeInvalid).With("path", path).Wrap(err)
	}
	return nil
}
