package loaders

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/df07/go-pathtracer/pkg/core"
	"github.com/df07/go-pathtracer/pkg/scene"
)

// DefaultMeshColor is the base color of triangles whose file carries no colors
var DefaultMeshColor = core.NewColor(0.7, 0.7, 0.7)

// ErrUnsupportedPLY is returned for PLY constructs the loader does not read
var ErrUnsupportedPLY = errors.New("unsupported PLY")

const (
	maxElementCount = math.MaxInt32 / 3 // Faces are stored as three indices each
	maxListCount    = 1 << 16           // Vertices in one polygon
	maxPrealloc     = 1 << 16           // Larger files grow their slices as records arrive
)

// PLYHeader represents the parsed header information from a PLY file
type PLYHeader struct {
	Format      string // "binary_little_endian", "binary_big_endian", or "ascii"
	Version     string // Usually "1.0"
	VertexCount int
	FaceCount   int
	VertexProps []PLYProperty
	FaceProps   []PLYProperty
	Elements    []PLYElement // Every element in file order, including ones the loader skips
}

// PLYElement is one "element" block of the header
type PLYElement struct {
	Name  string
	Count int
	Props []PLYProperty
}

// PLYProperty represents a property definition in the PLY header
type PLYProperty struct {
	Name     string
	Type     string
	IsList   bool
	ListType string // For list properties, the type of the count
	DataType string // For list properties, the type of the data
}

// PLYData contains the raw data loaded from a PLY file
type PLYData struct {
	Vertices   []core.Vec3 // Vertex positions (x, y, z)
	Faces      []int       // Triangle indices (3 per triangle), polygons fan-triangulated
	Normals    []core.Vec3 // Per-vertex normals - empty if not present
	Colors     []core.Vec3 // Per-vertex linear colors - empty if not present
	FaceColors []core.Vec3 // Per-triangle linear colors - empty if not present
}

// LoadPLY loads a PLY file as flat triangles. Each triangle takes the normal of its
// first vertex and the face color, else the first vertex color, else DefaultMeshColor.
func LoadPLY(filename string) ([]scene.MeshTriangle, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open PLY file: %w", err)
	}
	defer file.Close()

	data, err := ReadPLY(file)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return data.Triangles(), nil
}

// ReadPLY parses PLY data in any of the three standard encodings
func ReadPLY(r io.Reader) (*PLYData, error) {
	reader := bufio.NewReaderSize(r, 1<<20)

	header, err := parsePLYHeader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to parse PLY header: %w", err)
	}

	var source valueSource
	switch header.Format {
	case "ascii":
		source = &asciiSource{reader: reader}
	case "binary_little_endian":
		source = &binarySource{reader: reader, order: binary.LittleEndian}
	case "binary_big_endian":
		source = &binarySource{reader: reader, order: binary.BigEndian}
	default:
		return nil, fmt.Errorf("%w format: %q", ErrUnsupportedPLY, header.Format)
	}

	data, err := readElements(source, header)
	if err != nil {
		return nil, fmt.Errorf("failed to read PLY data: %w", err)
	}
	return data, nil
}

// Triangles converts the indexed data into flat mesh triangles
func (d *PLYData) Triangles() []scene.MeshTriangle {
	tris := make([]scene.MeshTriangle, 0, len(d.Faces)/3)
	for t := 0; t+2 < len(d.Faces); t += 3 {
		i0, i1, i2 := d.Faces[t], d.Faces[t+1], d.Faces[t+2]
		tri := scene.MeshTriangle{
			V0:        d.Vertices[i0],
			V1:        d.Vertices[i1],
			V2:        d.Vertices[i2],
			BaseColor: DefaultMeshColor,
		}
		if len(d.Normals) > 0 {
			tri.Normal = d.Normals[i0]
		}
		switch {
		case len(d.FaceColors) > 0:
			tri.BaseColor = d.FaceColors[t/3]
		case len(d.Colors) > 0:
			tri.BaseColor = d.Colors[i0]
		}
		tris = append(tris, tri)
	}
	return tris
}

// parsePLYHeader reads header lines up to and including end_header
func parsePLYHeader(reader *bufio.Reader) (*PLYHeader, error) {
	header := &PLYHeader{}
	var current *PLYElement

	first := true
	for {
		line, err := reader.ReadString('\n')
		if err != nil && (err != io.EOF || line == "") {
			return nil, fmt.Errorf("header ended before end_header: %w", err)
		}
		line = strings.TrimSpace(line)

		if first {
			if line != "ply" {
				return nil, fmt.Errorf("missing ply magic, got %q", line)
			}
			first = false
			continue
		}
		if line == "end_header" {
			break
		}

		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		switch parts[0] {
		case "format":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid format line: %q", line)
			}
			header.Format = parts[1]
			header.Version = parts[2]
		case "comment", "obj_info":
			// Ignore comments
		case "element":
			if len(parts) < 3 {
				return nil, fmt.Errorf("invalid element line: %q", line)
			}
			count, err := strconv.Atoi(parts[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("invalid element count: %s", parts[2])
			}
			if count > maxElementCount {
				return nil, fmt.Errorf("%w element count %d for %s", ErrUnsupportedPLY, count, parts[1])
			}
			header.Elements = append(header.Elements, PLYElement{Name: parts[1], Count: count})
			current = &header.Elements[len(header.Elements)-1]
		case "property":
			if current == nil {
				return nil, fmt.Errorf("property before any element: %q", line)
			}
			prop, err := parsePLYProperty(parts[1:])
			if err != nil {
				return nil, fmt.Errorf("failed to parse property: %w", err)
			}
			current.Props = append(current.Props, prop)
		default:
			return nil, fmt.Errorf("unknown header line: %q", line)
		}
	}

	for _, element := range header.Elements {
		switch element.Name {
		case "vertex":
			header.VertexCount = element.Count
			header.VertexProps = element.Props
		case "face":
			header.FaceCount = element.Count
			header.FaceProps = element.Props
		}
	}
	return header, nil
}

// parsePLYProperty parses a property line from the PLY header
func parsePLYProperty(parts []string) (PLYProperty, error) {
	if len(parts) < 2 {
		return PLYProperty{}, fmt.Errorf("invalid property definition")
	}

	prop := PLYProperty{}

	if parts[0] == "list" {
		if len(parts) < 4 {
			return PLYProperty{}, fmt.Errorf("invalid list property definition")
		}
		prop.IsList = true
		prop.ListType = parts[1]
		prop.DataType = parts[2]
		prop.Name = parts[3]
		if getTypeSize(prop.ListType) == 0 || getTypeSize(prop.DataType) == 0 {
			return PLYProperty{}, fmt.Errorf("%w data type in list %s", ErrUnsupportedPLY, prop.Name)
		}
	} else {
		prop.Type = parts[0]
		prop.Name = parts[1]
		if getTypeSize(prop.Type) == 0 {
			return PLYProperty{}, fmt.Errorf("%w data type: %s", ErrUnsupportedPLY, prop.Type)
		}
	}

	return prop, nil
}

// readElements walks the body element by element in header order
func readElements(source valueSource, header *PLYHeader) (*PLYData, error) {
	data := &PLYData{
		Vertices: make([]core.Vec3, 0, min(header.VertexCount, maxPrealloc)),
		Faces:    make([]int, 0, min(header.FaceCount, maxPrealloc)*3),
	}

	for _, element := range header.Elements {
		for i := 0; i < element.Count; i++ {
			values, lists, err := readRecord(source, element.Props)
			if err != nil {
				return nil, fmt.Errorf("%s %d: %w", element.Name, i, err)
			}

			switch element.Name {
			case "vertex":
				addVertex(data, values)
			case "face":
				if err := addFace(data, values, lists, header.VertexCount); err != nil {
					return nil, fmt.Errorf("face %d: %w", i, err)
				}
			}
		}
	}

	return data, nil
}

// readRecord reads one element instance. Scalars land in values by property name
// and lists in lists by property name.
func readRecord(source valueSource, props []PLYProperty) (map[string]propertyValue, map[string][]int, error) {
	values := make(map[string]propertyValue, len(props))
	var lists map[string][]int

	for _, prop := range props {
		if !prop.IsList {
			v, err := source.next(prop.Type)
			if err != nil {
				return nil, nil, fmt.Errorf("property %s: %w", prop.Name, err)
			}
			values[prop.Name] = propertyValue{value: v, dataType: prop.Type}
			continue
		}

		count, err := source.next(prop.ListType)
		if err != nil {
			return nil, nil, fmt.Errorf("list %s count: %w", prop.Name, err)
		}
		if count < 0 || count != math.Trunc(count) {
			return nil, nil, fmt.Errorf("list %s has invalid count %v", prop.Name, count)
		}
		if count > maxListCount {
			return nil, nil, fmt.Errorf("%w list %s count %v", ErrUnsupportedPLY, prop.Name, count)
		}
		items := make([]int, int(count))
		for k := range items {
			v, err := source.next(prop.DataType)
			if err != nil {
				return nil, nil, fmt.Errorf("list %s item %d: %w", prop.Name, k, err)
			}
			items[k] = int(v)
		}
		if lists == nil {
			lists = make(map[string][]int)
		}
		lists[prop.Name] = items
	}

	return values, lists, nil
}

type propertyValue struct {
	value    float64
	dataType string
}

func addVertex(data *PLYData, values map[string]propertyValue) {
	data.Vertices = append(data.Vertices, core.NewVec3(values["x"].value, values["y"].value, values["z"].value))

	if _, ok := values["nx"]; ok {
		data.Normals = append(data.Normals, core.NewVec3(values["nx"].value, values["ny"].value, values["nz"].value))
	}
	if c, ok := colorOf(values); ok {
		data.Colors = append(data.Colors, c)
	}
}

func addFace(data *PLYData, values map[string]propertyValue, lists map[string][]int, vertexCount int) error {
	indices, ok := lists["vertex_indices"]
	if !ok {
		indices, ok = lists["vertex_index"]
	}
	if !ok {
		return fmt.Errorf("no vertex_indices list")
	}
	if len(indices) < 3 {
		return fmt.Errorf("polygon with %d vertices", len(indices))
	}
	for _, index := range indices {
		if index < 0 || index >= vertexCount {
			return fmt.Errorf("vertex index %d out of range [0, %d)", index, vertexCount)
		}
	}

	faceColor, hasColor := colorOf(values)

	// Fan triangulation keeps the polygon's winding
	for k := 1; k+1 < len(indices); k++ {
		data.Faces = append(data.Faces, indices[0], indices[k], indices[k+1])
		if hasColor {
			data.FaceColors = append(data.FaceColors, faceColor)
		}
	}
	return nil
}

// colorOf reads red/green/blue (or r/g/b). 8-bit channels are sRGB and converted
// to linear; floating point channels are taken as linear already.
func colorOf(values map[string]propertyValue) (core.Color, bool) {
	channel := func(long, short string) (float64, bool) {
		v, ok := values[long]
		if !ok {
			v, ok = values[short]
		}
		if !ok {
			return 0, false
		}
		if v.dataType == "uchar" || v.dataType == "uint8" {
			return core.GammaToLinear(v.value / 255.0), true
		}
		return v.value, true
	}

	r, okR := channel("red", "r")
	g, okG := channel("green", "g")
	b, okB := channel("blue", "b")
	if !okR || !okG || !okB {
		return core.Color{}, false
	}
	return core.NewColor(r, g, b), true
}

// valueSource yields successive scalar values of the body
type valueSource interface {
	next(dataType string) (float64, error)
}

type asciiSource struct {
	reader *bufio.Reader
}

func (s *asciiSource) next(dataType string) (float64, error) {
	token, err := s.token()
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q", dataType, token)
	}
	return v, nil
}

// token skips whitespace, including line breaks, and returns the next field
func (s *asciiSource) token() (string, error) {
	var sb strings.Builder
	for {
		b, err := s.reader.ReadByte()
		if err != nil {
			if err == io.EOF && sb.Len() > 0 {
				return sb.String(), nil
			}
			if err == io.EOF {
				return "", io.ErrUnexpectedEOF
			}
			return "", err
		}
		if b == ' ' || b == '\t' || b == '\n' || b == '\r' {
			if sb.Len() > 0 {
				return sb.String(), nil
			}
			continue
		}
		sb.WriteByte(b)
	}
}

type binarySource struct {
	reader *bufio.Reader
	order  binary.ByteOrder
}

func (s *binarySource) next(dataType string) (float64, error) {
	var buf [8]byte
	size := getTypeSize(dataType)
	if size == 0 {
		return 0, fmt.Errorf("%w data type: %s", ErrUnsupportedPLY, dataType)
	}
	if _, err := io.ReadFull(s.reader, buf[:size]); err != nil {
		return 0, err
	}
	b := buf[:size]

	switch dataType {
	case "float", "float32":
		return float64(math.Float32frombits(s.order.Uint32(b))), nil
	case "double", "float64":
		return math.Float64frombits(s.order.Uint64(b)), nil
	case "int", "int32":
		return float64(int32(s.order.Uint32(b))), nil
	case "uint", "uint32":
		return float64(s.order.Uint32(b)), nil
	case "short", "int16":
		return float64(int16(s.order.Uint16(b))), nil
	case "ushort", "uint16":
		return float64(s.order.Uint16(b)), nil
	case "char", "int8":
		return float64(int8(b[0])), nil
	default: // uchar, uint8
		return float64(b[0]), nil
	}
}

// getTypeSize returns the size in bytes of a PLY data type, 0 if unknown
func getTypeSize(dataType string) int {
	switch dataType {
	case "float", "float32", "int", "int32", "uint", "uint32":
		return 4
	case "double", "float64":
		return 8
	case "short", "int16", "ushort", "uint16":
		return 2
	case "char", "int8", "uchar", "uint8":
		return 1
	default:
		return 0
	}
}
