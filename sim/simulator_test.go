package sim

import "testing"

func TestSimulator_AddNode_RejectsDuplicateID(t *testing.T) {
	// GIVEN a simulator with node 1 already registered
	s := NewSimulator(1000, 0, 1)
	app := &recordingApp{}
	n1 := NewNode(1, Rack(0), 1, app, s.RNG().ForSubsystem(SubsystemNode(1)), false, false, 0)
	if err := s.AddNode(n1); err != nil {
		t.Fatalf("first AddNode failed: %v", err)
	}

	// WHEN a second node with the same id is added
	n1dup := NewNode(1, Rack(0), 1, app, s.RNG().ForSubsystem(SubsystemNode(1)), false, false, 0)
	err := s.AddNode(n1dup)

	// THEN it is rejected
	if err == nil {
		t.Error("AddNode with duplicate id did not return an error")
	}
}

func TestSimulator_Send_DeliversAcrossNodes(t *testing.T) {
	// GIVEN two registered nodes, one client and one server
	s := NewSimulator(1000, 0, 1)
	clientApp := &recordingApp{}
	serverApp := &recordingApp{}
	client := NewNode(0, Rack(0), 1, clientApp, s.RNG().ForSubsystem(SubsystemNode(0)), true, false, 0)
	server := NewNode(1, Rack(0), 1, serverApp, s.RNG().ForSubsystem(SubsystemNode(1)), false, false, 0)
	if err := s.AddNode(client); err != nil {
		t.Fatalf("AddNode client: %v", err)
	}
	if err := s.AddNode(server); err != nil {
		t.Fatalf("AddNode server: %v", err)
	}

	// WHEN client sends a message to server
	msg := newFakeMessage(0, 0, 1)
	if err := s.Send(msg); err != nil {
		t.Fatalf("Send returned error: %v", err)
	}

	// THEN the server's inflight queue received it with a positive arrival time
	if server.inflight.Len() != 1 {
		t.Fatalf("server inflight queue length: got %d, want 1", server.inflight.Len())
	}
	if (*server.inflight)[0].arrival <= 0 {
		t.Errorf("arrival time: got %d, want > 0", (*server.inflight)[0].arrival)
	}
}

func TestSimulator_Send_UnknownDestination_ReturnsProtocolError(t *testing.T) {
	// GIVEN a simulator with only the sender node registered
	s := NewSimulator(1000, 0, 1)
	app := &recordingApp{}
	client := NewNode(0, Rack(0), 1, app, s.RNG().ForSubsystem(SubsystemNode(0)), true, false, 0)
	if err := s.AddNode(client); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	// WHEN a message addressed to an unregistered node is sent
	msg := newFakeMessage(0, 0, 99)
	err := s.Send(msg)

	// THEN it returns a ProtocolError
	if _, ok := err.(*ProtocolError); !ok {
		t.Errorf("Send to unknown dest: got %v (%T), want *ProtocolError", err, err)
	}
}

func TestSimulator_Run_AdvancesUntilDuration(t *testing.T) {
	// GIVEN a simulator with one node and a short duration
	s := NewSimulator(MinPropgDelay*3, 0, 1)
	app := &recordingApp{}
	n := NewNode(0, Rack(0), 1, app, s.RNG().ForSubsystem(SubsystemNode(0)), true, false, 0)
	if err := s.AddNode(n); err != nil {
		t.Fatalf("AddNode: %v", err)
	}

	// WHEN Run is called
	if err := s.Run(); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	// THEN the application's Execute was called once per tick through Duration
	if len(app.executed) != 3 {
		t.Errorf("Execute call count: got %d, want 3", len(app.executed))
	}
}

func TestSimulator_Run_StopsOnFirstError(t *testing.T) {
	// GIVEN a node whose application always errors on Receive, and a
	// message already queued for it
	s := NewSimulator(MinPropgDelay*5, 0, 1)
	wantErr := NewProtocolError("boom")
	app := &recordingApp{err: wantErr}
	n := NewNode(0, Rack(0), 1, app, s.RNG().ForSubsystem(SubsystemNode(0)), false, false, 0)
	if err := s.AddNode(n); err != nil {
		t.Fatalf("AddNode: %v", err)
	}
	n.Enqueue(newFakeMessage(0, 0, 0), 0)

	// WHEN Run is called
	err := s.Run()

	// THEN it returns the application's error
	if err != wantErr {
		t.Errorf("Run error: got %v, want %v", err, wantErr)
	}
}
