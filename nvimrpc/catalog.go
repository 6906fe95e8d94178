package nvimrpc

import (
	"github.com/blang/semver"

	"github.com/agrinman/nvimrpc/msgpack"
)

// Parameter is one (type name, parameter name) pair of a function
// descriptor's signature.
type Parameter struct {
	Type string
	Name string
}

// FunctionInfo describes one entry of the discovered API surface.
type FunctionInfo struct {
	Name       string
	Since      uint64
	Method     bool
	ReturnType string
	Parameters []Parameter
}

// Version is the server's semantic version plus the Neovim-specific
// API compatibility fields that ride alongside it in
// nvim_get_api_info's metadata map.
type Version struct {
	semver.Version
	APILevel      uint64
	APICompatible uint64
	Prerelease    bool
	Build         string
}

// Catalog is a read-only snapshot of the server's callable surface, as
// parsed from one nvim_get_api_info response. Go's garbage collector
// reclaims the whole graph in one step when the owning *Catalog
// pointer is dropped on disconnect/refresh — the equivalent of the
// arena-wholesale-free design note, achieved with ordinary owned
// storage rather than a dedicated bump allocator.
type Catalog struct {
	ChannelID int64
	Version   Version
	Functions []FunctionInfo
}

// FindFunction searches the catalog by name.
func (c *Catalog) FindFunction(name string) (FunctionInfo, bool) {
	for _, f := range c.Functions {
		if f.Name == name {
			return f, true
		}
	}
	return FunctionInfo{}, false
}

// parseAPIInfo parses the Value returned by nvim_get_api_info: a
// two-element array `[channel_id, metadata_map]`. Any structural
// deviation (missing required key, wrong type) returns
// ErrMalformedMetadata; the caller is responsible for preserving the
// prior catalog in that case, which Client.RefreshAPIInfo does by
// only swapping its field after this call succeeds.
func parseAPIInfo(v msgpack.Value) (*Catalog, error) {
	arr, ok := v.Array()
	if !ok || len(arr) != 2 {
		return nil, ErrMalformedMetadata
	}

	channelID, ok := arr[0].AsInt64()
	if !ok {
		return nil, ErrMalformedMetadata
	}

	metadata := arr[1]
	if metadata.Kind() != msgpack.KindMap {
		return nil, ErrMalformedMetadata
	}

	version, err := parseVersion(metadata)
	if err != nil {
		return nil, err
	}

	functions, err := parseFunctions(metadata)
	if err != nil {
		return nil, err
	}

	return &Catalog{ChannelID: channelID, Version: version, Functions: functions}, nil
}

func parseVersion(metadata msgpack.Value) (Version, error) {
	versionVal, ok := metadata.MapGet("version")
	if !ok || versionVal.Kind() != msgpack.KindMap {
		return Version{}, ErrMalformedMetadata
	}

	major, ok := mapUint(versionVal, "major")
	if !ok {
		return Version{}, ErrMalformedMetadata
	}
	minor, _ := mapUint(versionVal, "minor")
	patch, _ := mapUint(versionVal, "patch")
	apiLevel, _ := mapUint(versionVal, "api_level")
	apiCompatible, _ := mapUint(versionVal, "api_compatible")

	prerelease := false
	if v, ok := versionVal.MapGet("api_prerelease"); ok {
		if b, ok := v.Bool(); ok {
			prerelease = b
		}
	}
	build := ""
	if v, ok := versionVal.MapGet("build"); ok {
		if s, ok := v.Str(); ok {
			build = s
		}
	}

	return Version{
		Version: semver.Version{
			Major: major,
			Minor: minor,
			Patch: patch,
		},
		APILevel:      apiLevel,
		APICompatible: apiCompatible,
		Prerelease:    prerelease,
		Build:         build,
	}, nil
}

func parseFunctions(metadata msgpack.Value) ([]FunctionInfo, error) {
	fnsVal, ok := metadata.MapGet("functions")
	if !ok {
		return nil, ErrMalformedMetadata
	}
	fnsArr, ok := fnsVal.Array()
	if !ok {
		return nil, ErrMalformedMetadata
	}

	functions := make([]FunctionInfo, 0, len(fnsArr))
	for _, fnVal := range fnsArr {
		fn, err := parseFunction(fnVal)
		if err != nil {
			return nil, err
		}
		functions = append(functions, fn)
	}
	return functions, nil
}

func parseFunction(fnVal msgpack.Value) (FunctionInfo, error) {
	if fnVal.Kind() != msgpack.KindMap {
		return FunctionInfo{}, ErrMalformedMetadata
	}
	nameVal, ok := fnVal.MapGet("name")
	if !ok {
		return FunctionInfo{}, ErrMalformedMetadata
	}
	name, ok := nameVal.Str()
	if !ok {
		return FunctionInfo{}, ErrMalformedMetadata
	}

	since, _ := mapUint(fnVal, "since")

	method := false
	if v, ok := fnVal.MapGet("method"); ok {
		if b, ok := v.Bool(); ok {
			method = b
		}
	}

	returnType := ""
	if v, ok := fnVal.MapGet("return_type"); ok {
		if s, ok := v.Str(); ok {
			returnType = s
		}
	}

	var params []Parameter
	if v, ok := fnVal.MapGet("parameters"); ok {
		arr, ok := v.Array()
		if !ok {
			return FunctionInfo{}, ErrMalformedMetadata
		}
		for _, p := range arr {
			pair, ok := p.Array()
			if !ok || len(pair) != 2 {
				return FunctionInfo{}, ErrMalformedMetadata
			}
			typ, ok1 := pair[0].Str()
			pname, ok2 := pair[1].Str()
			if !ok1 || !ok2 {
				return FunctionInfo{}, ErrMalformedMetadata
			}
			params = append(params, Parameter{Type: typ, Name: pname})
		}
	}

	return FunctionInfo{
		Name:       name,
		Since:      since,
		Method:     method,
		ReturnType: returnType,
		Parameters: params,
	}, nil
}

func mapUint(v msgpack.Value, key string) (uint64, bool) {
	val, ok := v.MapGet(key)
	if !ok {
		return 0, false
	}
	if n, ok := val.AsInt64(); ok {
		return uint64(n), true
	}
	return 0, false
}
