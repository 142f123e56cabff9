package loaders

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/df07/go-pathtracer/pkg/core"
)

// createTestPLY builds a binary PLY with 4 vertices forming a square and 2 triangles
func createTestPLY(order binary.ByteOrder, includeNormals bool, includeColors bool) []byte {
	var buf bytes.Buffer

	format := "binary_little_endian"
	if order == binary.BigEndian {
		format = "binary_big_endian"
	}

	buf.WriteString("ply\n")
	buf.WriteString("format " + format + " 1.0\n")
	buf.WriteString("comment generated for tests\n")
	buf.WriteString("element vertex 4\n")
	buf.WriteString("property float x\n")
	buf.WriteString("property float y\n")
	buf.WriteString("property float z\n")

	if includeNormals {
		buf.WriteString("property float nx\n")
		buf.WriteString("property float ny\n")
		buf.WriteString("property float nz\n")
	}

	if includeColors {
		buf.WriteString("property uchar red\n")
		buf.WriteString("property uchar green\n")
		buf.WriteString("property uchar blue\n")
	}

	buf.WriteString("element face 2\n")
	buf.WriteString("property list uchar int vertex_indices\n")
	buf.WriteString("end_header\n")

	vertices := []struct {
		x, y, z    float32
		nx, ny, nz float32
		r, g, b    uint8
	}{
		{0.0, 0.0, 0.0, 0.0, 0.0, 1.0, 255, 0, 0},   // red
		{1.0, 0.0, 0.0, 0.0, 0.0, 1.0, 0, 255, 0},   // green
		{1.0, 1.0, 0.0, 0.0, 0.0, 1.0, 0, 0, 255},   // blue
		{0.0, 1.0, 0.0, 0.0, 0.0, 1.0, 255, 255, 0}, // yellow
	}

	for _, v := range vertices {
		binary.Write(&buf, order, [3]float32{v.x, v.y, v.z})
		if includeNormals {
			binary.Write(&buf, order, [3]float32{v.nx, v.ny, v.nz})
		}
		if includeColors {
			binary.Write(&buf, order, [3]uint8{v.r, v.g, v.b})
		}
	}

	faces := [][3]int32{{0, 1, 2}, {0, 2, 3}}
	for _, f := range faces {
		binary.Write(&buf, order, uint8(3))
		binary.Write(&buf, order, f)
	}

	return buf.Bytes()
}

func writeTestFile(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("Failed to create test PLY file: %v", err)
	}
	return path
}

func TestReadPLY_Basic(t *testing.T) {
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		t.Run(order.String(), func(t *testing.T) {
			data, err := ReadPLY(bytes.NewReader(createTestPLY(order, false, false)))
			if err != nil {
				t.Fatalf("Failed to read PLY: %v", err)
			}

			expectedVertices := []core.Vec3{
				core.NewVec3(0.0, 0.0, 0.0),
				core.NewVec3(1.0, 0.0, 0.0),
				core.NewVec3(1.0, 1.0, 0.0),
				core.NewVec3(0.0, 1.0, 0.0),
			}
			if len(data.Vertices) != len(expectedVertices) {
				t.Fatalf("Expected %d vertices, got %d", len(expectedVertices), len(data.Vertices))
			}
			for i, expected := range expectedVertices {
				if !data.Vertices[i].Equals(expected) {
					t.Errorf("Vertex %d: expected %v, got %v", i, expected, data.Vertices[i])
				}
			}

			expectedFaces := []int{0, 1, 2, 0, 2, 3}
			if len(data.Faces) != len(expectedFaces) {
				t.Fatalf("Expected %d face indices, got %d", len(expectedFaces), len(data.Faces))
			}
			for i, expected := range expectedFaces {
				if data.Faces[i] != expected {
					t.Errorf("Face index %d: expected %d, got %d", i, expected, data.Faces[i])
				}
			}

			if len(data.Normals) != 0 || len(data.Colors) != 0 {
				t.Errorf("Expected no normals or colors, got %d and %d", len(data.Normals), len(data.Colors))
			}
		})
	}
}

func TestReadPLY_NormalsAndColors(t *testing.T) {
	data, err := ReadPLY(bytes.NewReader(createTestPLY(binary.LittleEndian, true, true)))
	if err != nil {
		t.Fatalf("Failed to read PLY: %v", err)
	}

	if len(data.Normals) != 4 {
		t.Fatalf("Expected 4 normals, got %d", len(data.Normals))
	}
	for i, n := range data.Normals {
		if !n.Equals(core.NewVec3(0, 0, 1)) {
			t.Errorf("Normal %d: expected (0,0,1), got %v", i, n)
		}
	}

	// Saturated sRGB channels map to the same linear values
	expectedColors := []core.Vec3{
		core.NewVec3(1.0, 0.0, 0.0),
		core.NewVec3(0.0, 1.0, 0.0),
		core.NewVec3(0.0, 0.0, 1.0),
		core.NewVec3(1.0, 1.0, 0.0),
	}
	if len(data.Colors) != len(expectedColors) {
		t.Fatalf("Expected %d colors, got %d", len(expectedColors), len(data.Colors))
	}
	for i, expected := range expectedColors {
		if !data.Colors[i].Equals(expected) {
			t.Errorf("Color %d: expected %v, got %v", i, expected, data.Colors[i])
		}
	}
}

func TestReadPLY_ASCII(t *testing.T) {
	content := `ply
format ascii 1.0
comment a unit quad with one colored face and an extra element
element vertex 4
property double x
property double y
property double z
element face 1
property list uchar uint vertex_index
property float red
property float green
property float blue
element edge 1
property int vertex1
property int vertex2
end_header
0 0 -1
1 0 -1
1 1 -1
0 1 -1
4 0 1 2 3 0.25 0.5 0.75
0 1
`
	data, err := ReadPLY(strings.NewReader(content))
	if err != nil {
		t.Fatalf("Failed to read PLY: %v", err)
	}

	// The quad is fan-triangulated
	expectedFaces := []int{0, 1, 2, 0, 2, 3}
	if len(data.Faces) != len(expectedFaces) {
		t.Fatalf("Expected %v, got %v", expectedFaces, data.Faces)
	}
	for i := range expectedFaces {
		if data.Faces[i] != expectedFaces[i] {
			t.Fatalf("Expected %v, got %v", expectedFaces, data.Faces)
		}
	}

	tris := data.Triangles()
	if len(tris) != 2 {
		t.Fatalf("Expected 2 triangles, got %d", len(tris))
	}
	for i, tri := range tris {
		if !tri.BaseColor.Equals(core.NewColor(0.25, 0.5, 0.75)) {
			t.Errorf("Triangle %d: expected the face color, got %v", i, tri.BaseColor)
		}
		if tri.Normal != (core.Vec3{}) {
			t.Errorf("Triangle %d: expected no normal, got %v", i, tri.Normal)
		}
	}
	if !tris[1].V2.Equals(core.NewVec3(0, 1, -1)) {
		t.Errorf("Expected last vertex (0,1,-1), got %v", tris[1].V2)
	}
}

func TestLoadPLY_Triangles(t *testing.T) {
	path := writeTestFile(t, "square.ply", createTestPLY(binary.LittleEndian, true, true))

	tris, err := LoadPLY(path)
	if err != nil {
		t.Fatalf("Failed to load PLY: %v", err)
	}
	if len(tris) != 2 {
		t.Fatalf("Expected 2 triangles, got %d", len(tris))
	}

	// Normal and color come from the first vertex of each triangle
	for i, tri := range tris {
		if !tri.Normal.Equals(core.NewVec3(0, 0, 1)) {
			t.Errorf("Triangle %d: expected normal (0,0,1), got %v", i, tri.Normal)
		}
		if !tri.BaseColor.Equals(core.NewColor(1, 0, 0)) {
			t.Errorf("Triangle %d: expected red, got %v", i, tri.BaseColor)
		}
	}
	if !tris[1].V1.Equals(core.NewVec3(1, 1, 0)) {
		t.Errorf("Expected (1,1,0), got %v", tris[1].V1)
	}

	plain := writeTestFile(t, "plain.ply", createTestPLY(binary.LittleEndian, false, false))
	tris, err = LoadPLY(plain)
	if err != nil {
		t.Fatalf("Failed to load PLY: %v", err)
	}
	if !tris[0].BaseColor.Equals(DefaultMeshColor) {
		t.Errorf("Expected the default color, got %v", tris[0].BaseColor)
	}
}

func TestLoadPLY_NonExistentFile(t *testing.T) {
	_, err := LoadPLY(filepath.Join(t.TempDir(), "nonexistent.ply"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Expected a not-exist error, got %v", err)
	}
}

func TestReadPLY_Errors(t *testing.T) {
	header := "ply\nformat ascii 1.0\nelement vertex 3\nproperty float x\nproperty float y\nproperty float z\nelement face 1\nproperty list uchar int vertex_indices\nend_header\n"
	vertices := "0 0 0\n1 0 0\n0 1 0\n"

	tests := []struct {
		name    string
		content string
		target  error
	}{
		{"missing magic", "plx\nformat ascii 1.0\nend_header\n", nil},
		{"no end_header", "ply\nformat ascii 1.0\nelement vertex 1\n", nil},
		{"unsupported format", "ply\nformat binary_middle_endian 1.0\nend_header\n", ErrUnsupportedPLY},
		{"unknown type", "ply\nformat ascii 1.0\nelement vertex 1\nproperty quad x\nend_header\n", ErrUnsupportedPLY},
		{"truncated body", header + "0 0 0\n1 0 0\n", nil},
		{"index out of range", header + vertices + "3 0 1 7\n", nil},
		{"degenerate polygon", header + vertices + "2 0 1\n", nil},
		{"bad number", header + "0 0 zero\n1 0 0\n0 1 0\n3 0 1 2\n", nil},
		{"oversized element count", "ply\nformat ascii 1.0\nelement vertex 999999999999999\nproperty float x\nend_header\n", ErrUnsupportedPLY},
		{"oversized list count", "ply\nformat ascii 1.0\nelement face 1\nproperty list uint int vertex_indices\nend_header\n4294967280 0 1 2\n", ErrUnsupportedPLY},
		{"large count with short body", "ply\nformat ascii 1.0\nelement vertex 700000000\nproperty float x\nproperty float y\nproperty float z\nend_header\n0 0 0\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPLY(strings.NewReader(tt.content))
			if err == nil {
				t.Fatal("Expected an error")
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("Expected %v, got %v", tt.target, err)
			}
		})
	}
}

func TestReadPLY_BinaryOversizedList(t *testing.T) {
	var buf bytes.Buffer
	buf.WriteString("ply\nformat binary_little_endian 1.0\nelement face 1\nproperty list uint int vertex_indices\nend_header\n")
	binary.Write(&buf, binary.LittleEndian, uint32(0xFFFFFFF0))

	_, err := ReadPLY(&buf)
	if !errors.Is(err, ErrUnsupportedPLY) {
		t.Errorf("Expected ErrUnsupportedPLY for a huge list count, got %v", err)
	}
}

func TestParsePLYHeader(t *testing.T) {
	headerContent := "ply\r\n" +
		"format binary_little_endian 1.0\r\n" +
		"comment Test PLY file\r\n" +
		"element vertex 100\r\n" +
		"property float x\r\n" +
		"property float y\r\n" +
		"property float z\r\n" +
		"property float nx\r\n" +
		"property float ny\r\n" +
		"property float nz\r\n" +
		"property uchar red\r\n" +
		"property uchar green\r\n" +
		"property uchar blue\r\n" +
		"element face 50\r\n" +
		"property list uchar int vertex_indices\r\n" +
		"end_header\r\n" +
		"BODY"

	reader := bufio.NewReader(strings.NewReader(headerContent))
	header, err := parsePLYHeader(reader)
	if err != nil {
		t.Fatalf("Failed to parse header: %v", err)
	}

	if header.Format != "binary_little_endian" {
		t.Errorf("Expected format 'binary_little_endian', got '%s'", header.Format)
	}
	if header.Version != "1.0" {
		t.Errorf("Expected version '1.0', got '%s'", header.Version)
	}
	if header.VertexCount != 100 {
		t.Errorf("Expected 100 vertices, got %d", header.VertexCount)
	}
	if header.FaceCount != 50 {
		t.Errorf("Expected 50 faces, got %d", header.FaceCount)
	}
	if len(header.VertexProps) != 9 {
		t.Errorf("Expected 9 vertex properties, got %d", len(header.VertexProps))
	}
	if len(header.FaceProps) != 1 || !header.FaceProps[0].IsList {
		t.Errorf("Expected 1 list face property, got %+v", header.FaceProps)
	}

	// The reader is left at the first body byte
	rest, _ := reader.ReadString(0)
	if rest != "BODY" {
		t.Errorf("Expected body to follow the header, got %q", rest)
	}
}

func TestGetTypeSize(t *testing.T) {
	tests := []struct {
		dataType string
		expected int
	}{
		{"float", 4},
		{"float32", 4},
		{"int", 4},
		{"int32", 4},
		{"uint", 4},
		{"uint32", 4},
		{"double", 8},
		{"float64", 8},
		{"short", 2},
		{"int16", 2},
		{"ushort", 2},
		{"uint16", 2},
		{"char", 1},
		{"int8", 1},
		{"uchar", 1},
		{"uint8", 1},
		{"unknown", 0},
	}

	for _, test := range tests {
		result := getTypeSize(test.dataType)
		if result != test.expected {
			t.Errorf("getTypeSize(%s): expected %d, got %d", test.dataType, test.expected, result)
		}
	}
}
