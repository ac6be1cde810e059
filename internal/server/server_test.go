package server

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/shelfmap/shelfmap/pkg/inventory"
	"github.com/shelfmap/shelfmap/pkg/store/jsonfile"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	st, err := jsonfile.Open(filepath.Join(dir, "inventory.json"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	srv, err := New(Options{
		Store:      st,
		UploadsDir: filepath.Join(dir, "uploads"),
		Logger:     log.New(io.Discard),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		st.Close()
	})
	return ts
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil && err != io.EOF {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

func createLocation(t *testing.T, base, name, parentID string) inventory.Location {
	t.Helper()
	var loc inventory.Location
	status := doJSON(t, http.MethodPost, base+"/api/locations",
		inventory.Location{Name: name, ParentID: parentID}, &loc)
	if status != http.StatusCreated {
		t.Fatalf("create location %s: status %d", name, status)
	}
	return loc
}

func TestLocationEndpoints(t *testing.T) {
	ts := newTestServer(t)

	garage := createLocation(t, ts.URL, "Garage", "")
	shelf := createLocation(t, ts.URL, "Shelf", garage.ID)

	var roots []inventory.Location
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/locations?root=true", nil, &roots); status != http.StatusOK {
		t.Fatalf("list roots: status %d", status)
	}
	if len(roots) != 1 || roots[0].ID != garage.ID {
		t.Errorf("roots = %v", roots)
	}

	var children []inventory.Location
	doJSON(t, http.MethodGet, ts.URL+"/api/locations?parentId="+garage.ID, nil, &children)
	if len(children) != 1 || children[0].ID != shelf.ID {
		t.Errorf("children = %v", children)
	}

	var crumbs []inventory.Breadcrumb
	doJSON(t, http.MethodGet, ts.URL+"/api/locations/"+shelf.ID+"/breadcrumbs", nil, &crumbs)
	if len(crumbs) != 2 || crumbs[0].Name != "Garage" || crumbs[1].Name != "Shelf" {
		t.Errorf("breadcrumbs = %v", crumbs)
	}

	shelf.Name = "Top Shelf"
	var updated inventory.Location
	if status := doJSON(t, http.MethodPut, ts.URL+"/api/locations/"+shelf.ID, shelf, &updated); status != http.StatusOK {
		t.Fatalf("update: status %d", status)
	}
	if updated.Name != "Top Shelf" {
		t.Errorf("updated name = %q", updated.Name)
	}

	if status := doJSON(t, http.MethodDelete, ts.URL+"/api/locations/"+shelf.ID, nil, nil); status != http.StatusNoContent {
		t.Errorf("delete: status %d", status)
	}
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/locations/"+shelf.ID, nil, nil); status != http.StatusNotFound {
		t.Errorf("get deleted: status %d", status)
	}
}

func TestErrorBodyCarriesCode(t *testing.T) {
	ts := newTestServer(t)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/api/locations/nope", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Code != string(inventory.ErrCodeLocationNotFound) {
		t.Errorf("code = %q", body.Code)
	}
	if body.Error == "" {
		t.Error("error message empty")
	}
}

func TestMultipartLocationUpload(t *testing.T) {
	ts := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("name", "Pantry")
	mw.WriteField("description", "kitchen pantry")
	fw, err := mw.CreateFormFile("image", "pantry photo.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 640, 480))
	img.Set(0, 0, color.White)
	if err := png.Encode(fw, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	mw.Close()

	resp, err := http.Post(ts.URL+"/api/locations", mw.FormDataContentType(), &buf)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("status = %d: %s", resp.StatusCode, raw)
	}
	var loc inventory.Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if loc.ImageWidth != 640 || loc.ImageHeight != 480 {
		t.Errorf("image size = %gx%g, want 640x480", loc.ImageWidth, loc.ImageHeight)
	}
	if !strings.HasPrefix(loc.ImagePath, "/uploads/") {
		t.Fatalf("image path = %q", loc.ImagePath)
	}

	// The stored file is served back under /uploads/.
	got, err := http.Get(ts.URL + loc.ImagePath)
	if err != nil {
		t.Fatalf("fetch upload: %v", err)
	}
	defer got.Body.Close()
	if got.StatusCode != http.StatusOK {
		t.Errorf("upload fetch status = %d", got.StatusCode)
	}
}

func TestRegionEndpoints(t *testing.T) {
	ts := newTestServer(t)
	loc := createLocation(t, ts.URL, "Pegboard", "")

	var created inventory.Region
	status := doJSON(t, http.MethodPost, ts.URL+"/api/locations/"+loc.ID+"/regions",
		inventory.Region{Name: "Hooks", X: 10, Y: 10, Width: 100, Height: 50}, &created)
	if status != http.StatusCreated {
		t.Fatalf("create region: status %d", status)
	}
	if created.LocationID != loc.ID {
		t.Errorf("LocationID = %q", created.LocationID)
	}

	// Full replacement, the editor's save path.
	replacement := []inventory.Region{
		{ID: created.ID, Name: "Hooks", X: 10, Y: 10, Width: 100, Height: 50},
		{Name: "Bins", X: 120, Y: 10, Width: 80, Height: 50},
	}
	var replaced []inventory.Region
	status = doJSON(t, http.MethodPut, ts.URL+"/api/locations/"+loc.ID+"/regions", replacement, &replaced)
	if status != http.StatusOK {
		t.Fatalf("replace regions: status %d", status)
	}
	if len(replaced) != 2 || replaced[0].ID != created.ID || replaced[1].ID == "" {
		t.Errorf("replaced = %v", replaced)
	}

	var listed []inventory.Region
	doJSON(t, http.MethodGet, ts.URL+"/api/locations/"+loc.ID+"/regions", nil, &listed)
	if len(listed) != 2 || listed[0].Name != "Hooks" || listed[1].Name != "Bins" {
		t.Errorf("listed = %v", listed)
	}

	listed[1].Name = "Small bins"
	var updated inventory.Region
	status = doJSON(t, http.MethodPut, ts.URL+"/api/regions/"+listed[1].ID, listed[1], &updated)
	if status != http.StatusOK || updated.Name != "Small bins" {
		t.Errorf("update region: status %d, name %q", status, updated.Name)
	}

	if status := doJSON(t, http.MethodDelete, ts.URL+"/api/regions/"+listed[1].ID, nil, nil); status != http.StatusNoContent {
		t.Errorf("delete region: status %d", status)
	}
}

func TestItemAndSearchEndpoints(t *testing.T) {
	ts := newTestServer(t)
	loc := createLocation(t, ts.URL, "Workbench", "")

	var region inventory.Region
	doJSON(t, http.MethodPost, ts.URL+"/api/locations/"+loc.ID+"/regions",
		inventory.Region{Name: "Drawer", X: 0, Y: 0, Width: 200, Height: 100}, &region)

	var item inventory.Item
	status := doJSON(t, http.MethodPost, ts.URL+"/api/inventory",
		inventory.Item{Name: "Calipers", Quantity: 1, LocationID: loc.ID, RegionID: region.ID}, &item)
	if status != http.StatusCreated {
		t.Fatalf("create item: status %d", status)
	}
	if item.LocationName != "Workbench" || item.RegionName != "Drawer" {
		t.Errorf("join missing: %+v", item)
	}

	var byLocation []inventory.Item
	doJSON(t, http.MethodGet, ts.URL+"/api/inventory?locationId="+loc.ID, nil, &byLocation)
	if len(byLocation) != 1 {
		t.Errorf("filter by location returned %d items", len(byLocation))
	}

	var hits []inventory.Item
	doJSON(t, http.MethodGet, ts.URL+"/api/search?q=cali", nil, &hits)
	if len(hits) != 1 || hits[0].ID != item.ID {
		t.Errorf("search hits = %v", hits)
	}

	var empty []inventory.Item
	doJSON(t, http.MethodGet, ts.URL+"/api/search?q=", nil, &empty)
	if len(empty) != 0 {
		t.Errorf("blank search returned %d items", len(empty))
	}
}

func TestLEDEndpoint(t *testing.T) {
	ts := newTestServer(t)
	loc := createLocation(t, ts.URL, "Garage", "")

	var region inventory.Region
	doJSON(t, http.MethodPost, ts.URL+"/api/locations/"+loc.ID+"/regions",
		inventory.Region{Name: "Toolbox", X: 100, Y: 200, Width: 60, Height: 40}, &region)

	var placed inventory.Item
	doJSON(t, http.MethodPost, ts.URL+"/api/inventory",
		inventory.Item{Name: "Hammer", Quantity: 1, LocationID: loc.ID, RegionID: region.ID}, &placed)

	var target inventory.LEDTarget
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/led/"+placed.ID, nil, &target); status != http.StatusOK {
		t.Fatalf("led: status %d", status)
	}
	if target.Position.X != 130 || target.Position.Y != 220 {
		t.Errorf("led position = %+v, want (130, 220)", target.Position)
	}
	if target.Region.ID != region.ID || target.Location.ID != loc.ID {
		t.Errorf("led target = %+v", target)
	}

	// An unplaced item has nothing to point at.
	var loose inventory.Item
	doJSON(t, http.MethodPost, ts.URL+"/api/inventory",
		inventory.Item{Name: "Loose bolt", Quantity: 5}, &loose)
	if status := doJSON(t, http.MethodGet, ts.URL+"/api/led/"+loose.ID, nil, nil); status != http.StatusBadRequest {
		t.Errorf("led for unplaced item: status %d", status)
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	var body map[string]string
	if status := doJSON(t, http.MethodGet, ts.URL+"/healthz", nil, &body); status != http.StatusOK {
		t.Fatalf("healthz: status %d", status)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestUniqueFilename(t *testing.T) {
	a := uniqueFilename("shelf photo.jpg")
	b := uniqueFilename("shelf photo.jpg")
	if a == b {
		t.Error("two uploads of the same name collided")
	}
	if filepath.Ext(a) != ".jpg" {
		t.Errorf("extension lost: %q", a)
	}
	if got := uniqueFilename("../../etc/passwd"); filepath.Dir(got) != "." {
		t.Errorf("path traversal survived: %q", got)
	}
	for _, name := range []string{a, b} {
		if name != filepath.Base(name) {
			t.Errorf("name %q escapes the uploads dir", name)
		}
	}
}
