package rpc

import (
	"testing"

	"google.golang.org/protobuf/reflect/protoregistry"
)

func TestServiceDescMetadataIsRegisteredProto(t *testing.T) {
	fd, err := protoregistry.GlobalFiles.FindFileByPath(SchedulerServiceDesc.Metadata.(string))
	if err != nil {
		t.Fatalf("FindFileByPath(%q): %v", SchedulerServiceDesc.Metadata, err)
	}
	if fd.Messages().ByName("Struct") == nil {
		t.Fatalf("%s does not declare Struct", fd.Path())
	}
	if SchedulerServiceDesc.ServiceName != "rtsched.v1.SchedulerService" {
		t.Fatalf("ServiceName = %q, want rtsched.v1.SchedulerService", SchedulerServiceDesc.ServiceName)
	}
}
