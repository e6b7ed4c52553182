package api

import (
	"bytes"
	"context"
	"fmt"

	"github.com/danielgtaylor/huma/v2"

	"github.com/camhal/camhal/internal/logging"
	"github.com/camhal/camhal/internal/metadata"
	"github.com/camhal/camhal/internal/version"
)

// CameraIDInput selects a camera by id.
type CameraIDInput struct {
	ID int `path:"id" example:"0" doc:"Camera identifier"`
}

// TemplateInput selects a camera and a request template.
type TemplateInput struct {
	CameraIDInput
	Template int `path:"template" example:"1" doc:"Template id (1=preview .. 6=manual)"`
}

// LogsInput bounds how much log history is returned.
type LogsInput struct {
	Tail int `query:"tail" default:"200" minimum:"1" maximum:"1000" doc:"Number of recent log lines"`
}

func (s *Server) registerRoutes() {
	huma.Get(s.api, "/api/version", func(_ context.Context, _ *struct{}) (*versionOutput, error) {
		return &versionOutput{Body: version.Get()}, nil
	})

	huma.Get(s.api, "/api/cameras", s.listCameras)
	huma.Get(s.api, "/api/cameras/{id}/info", s.getCameraInfo)
	huma.Get(s.api, "/api/cameras/{id}/characteristics", s.getCharacteristics)
	huma.Get(s.api, "/api/cameras/{id}/templates/{template}", s.getTemplate)
	huma.Get(s.api, "/api/cameras/{id}/dump", s.getDump)
	huma.Get(s.api, "/api/logs", s.getLogs)
}

type versionOutput struct {
	Body version.Info
}

type cameraListOutput struct {
	Body []CameraSummary
}

func (s *Server) listCameras(_ context.Context, _ *struct{}) (*cameraListOutput, error) {
	entries := s.manager.Entries()
	summaries := make([]CameraSummary, 0, len(entries))
	for _, entry := range entries {
		summaries = append(summaries, CameraSummary{
			ID:         entry.Camera.ID(),
			DevicePath: entry.Device.DevicePath,
			DeviceName: entry.Device.DeviceName,
			DeviceID:   entry.Device.DeviceID,
			Busy:       entry.Camera.Busy(),
		})
	}
	return &cameraListOutput{Body: summaries}, nil
}

type cameraInfoOutput struct {
	Body CameraInfo
}

func (s *Server) getCameraInfo(_ context.Context, input *CameraIDInput) (*cameraInfoOutput, error) {
	entry, ok := s.manager.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("no camera %d", input.ID))
	}

	info, err := entry.Camera.GetInfo()
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read camera info", err)
	}

	facing := "external"
	switch info.Facing {
	case metadata.LensFacingFront:
		facing = "front"
	case metadata.LensFacingBack:
		facing = "back"
	}

	return &cameraInfoOutput{Body: CameraInfo{
		ID:                  info.ID,
		DeviceVersion:       info.DeviceVersion,
		Facing:              facing,
		Orientation:         info.Orientation,
		ResourceCost:        info.ResourceCost,
		CharacteristicsKeys: info.StaticCharacteristics.Count(),
	}}, nil
}

type metadataOutput struct {
	Body MetadataDump
}

func (s *Server) getCharacteristics(_ context.Context, input *CameraIDInput) (*metadataOutput, error) {
	entry, ok := s.manager.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("no camera %d", input.ID))
	}

	info, err := entry.Camera.GetInfo()
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to read camera info", err)
	}
	return &metadataOutput{Body: dumpMetadata(info.StaticCharacteristics)}, nil
}

func (s *Server) getTemplate(_ context.Context, input *TemplateInput) (*metadataOutput, error) {
	entry, ok := s.manager.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("no camera %d", input.ID))
	}

	template := entry.Camera.ConstructDefaultRequestSettings(input.Template)
	if template == nil {
		return nil, huma.Error404NotFound(fmt.Sprintf("no template %d", input.Template))
	}
	return &metadataOutput{Body: dumpMetadata(template)}, nil
}

type dumpOutput struct {
	ContentType string `header:"Content-Type"`
	Body        []byte
}

func (s *Server) getDump(_ context.Context, input *CameraIDInput) (*dumpOutput, error) {
	entry, ok := s.manager.Get(input.ID)
	if !ok {
		return nil, huma.Error404NotFound(fmt.Sprintf("no camera %d", input.ID))
	}

	var out bytes.Buffer
	entry.Camera.Dump(&out)
	return &dumpOutput{ContentType: "text/plain", Body: out.Bytes()}, nil
}

type logsOutput struct {
	Body []LogLine
}

func (s *Server) getLogs(_ context.Context, input *LogsInput) (*logsOutput, error) {
	history := logging.GetHistory()
	if history == nil {
		return &logsOutput{Body: []LogLine{}}, nil
	}

	entries := history.Tail(input.Tail)
	lines := make([]LogLine, 0, len(entries))
	for _, entry := range entries {
		lines = append(lines, LogLine{Line: logging.FormatLogLine(entry)})
	}
	return &logsOutput{Body: lines}, nil
}

// dumpMetadata renders a metadata block for inspection.
func dumpMetadata(block *metadata.Metadata) MetadataDump {
	dump := MetadataDump{Entries: make([]MetadataEntry, 0, block.Count())}
	for _, tag := range block.Tags() {
		entry, _ := block.Get(tag)
		dump.Entries = append(dump.Entries, MetadataEntry{
			Tag:   fmt.Sprintf("%#x", uint32(tag)),
			Type:  entryTypeName(entry.Type),
			Count: entry.Count,
		})
	}
	return dump
}

func entryTypeName(t metadata.EntryType) string {
	switch t {
	case metadata.TypeByte:
		return "byte"
	case metadata.TypeInt32:
		return "int32"
	case metadata.TypeInt64:
		return "int64"
	case metadata.TypeFloat:
		return "float"
	case metadata.TypeDouble:
		return "double"
	case metadata.TypeRational:
		return "rational"
	default:
		return "unknown"
	}
}
