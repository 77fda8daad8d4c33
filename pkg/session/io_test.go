package session

import (
	"context"
	"errors"
	"sync"

	"github.com/srg/blesession/pkg/platform"
)

const (
	hrService = "180d"
	hrMeasure = "2a37"
)

// recorder collects values routed to one handler.
type recorder struct {
	mu     sync.Mutex
	values [][]byte
}

func (r *recorder) handle(vc platform.ValueChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, vc.Value)
}

func (r *recorder) got() [][]byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.values...)
}

func (s *SessionSuite) emit(charID string, value ...byte) {
	s.Platform.EmitValue(platform.ValueChange{DeviceID: testDevice, ServiceID: hrService, CharacteristicID: charID, Value: value})
}

func (s *SessionSuite) subscribe(charID string, h ValueHandler) {
	s.T().Helper()
	done := s.async(func() error { return s.Session.Subscribe(context.Background(), hrService, charID, h) })
	req := s.Platform.Expect(s.T(), "SetNotifyState")
	s.True(req.Enable)
	req.Complete(nil)
	s.Require().NoError(s.await(done))
}

func (s *SessionSuite) TestOperationsRequireReady() {
	ctx := context.Background()
	noop := func(platform.ValueChange) {}

	s.ErrorIs(s.Session.Read(ctx, hrService, hrMeasure, noop), ErrNotReady)
	s.ErrorIs(s.Session.Write(ctx, hrService, hrMeasure, []byte{1}), ErrNotReady)
	s.ErrorIs(s.Session.Subscribe(ctx, hrService, hrMeasure, noop), ErrNotReady)
	s.ErrorIs(s.Session.Unsubscribe(ctx, hrService, hrMeasure), ErrNotReady)
	s.Session.WriteBestEffort(hrService, hrMeasure, []byte{1})

	s.Platform.ExpectNone(s.T(), "ReadCharacteristic")
	s.Platform.ExpectNone(s.T(), "WriteCharacteristic")
	s.Platform.ExpectNone(s.T(), "SetNotifyState")
	s.True(s.hasEntry("Dropping best-effort write"))
}

func (s *SessionSuite) TestReadRegistersHandlerOnSuccess() {
	s.connectReady()
	rec := &recorder{}

	done := s.async(func() error { return s.Session.Read(context.Background(), hrService, hrMeasure, rec.handle) })
	req := s.Platform.Expect(s.T(), "ReadCharacteristic")
	s.Equal(hrMeasure, req.CharID)

	// nothing is routed before the read succeeded
	s.emit(hrMeasure, 0x01)
	s.Empty(rec.got())

	req.Complete(nil)
	s.Require().NoError(s.await(done))

	s.emit(hrMeasure, 0x02)
	s.emit("0x2A37", 0x03)
	s.Equal([][]byte{{0x02}, {0x03}}, rec.got())
	s.Equal(1, s.Session.Handlers())
}

func (s *SessionSuite) TestReadFailureKeepsPreviousHandler() {
	s.connectReady()
	prev, next := &recorder{}, &recorder{}
	s.subscribe(hrMeasure, prev.handle)

	done := s.async(func() error { return s.Session.Read(context.Background(), hrService, hrMeasure, next.handle) })
	s.Platform.Expect(s.T(), "ReadCharacteristic").Complete(platform.ErrUnknownChar)

	err := s.await(done)
	s.ErrorIs(err, ErrReadFailed)
	s.ErrorIs(err, platform.ErrUnknownChar)

	s.emit(hrMeasure, 0x01)
	s.Equal([][]byte{{0x01}}, prev.got())
	s.Empty(next.got())
}

func (s *SessionSuite) TestWrite() {
	s.connectReady()

	done := s.async(func() error {
		return s.Session.Write(context.Background(), hrService, "2a39", []byte{0xCA, 0xFE})
	})
	req := s.Platform.Expect(s.T(), "WriteCharacteristic")
	s.Equal([]byte{0xCA, 0xFE}, req.Value)
	req.Complete(nil)
	s.NoError(s.await(done))
	s.True(s.hasEntry("writeBLECharacteristicValue buffer"))
}

func (s *SessionSuite) TestWriteFailure() {
	s.connectReady()

	done := s.async(func() error {
		return s.Session.Write(context.Background(), hrService, "2a39", []byte{0x01})
	})
	s.Platform.Expect(s.T(), "WriteCharacteristic").Complete(errors.New("write not permitted"))

	err := s.await(done)
	s.ErrorIs(err, ErrWriteFailed)
	s.Contains(err.Error(), "write not permitted")
}

func (s *SessionSuite) TestWriteBestEffort() {
	s.connectReady()

	s.Session.WriteBestEffort(hrService, "2a39", []byte{0x01})
	s.Platform.Expect(s.T(), "WriteCharacteristic").Complete(errors.New("write not permitted"))

	s.True(s.hasEntry("Best-effort write failed"))
}

func (s *SessionSuite) TestResubscribeReplacesHandler() {
	s.connectReady()
	a, b := &recorder{}, &recorder{}

	s.subscribe(hrMeasure, a.handle)
	s.emit(hrMeasure, 0x01)
	s.subscribe(hrMeasure, b.handle)
	s.emit(hrMeasure, 0x02)

	s.Equal([][]byte{{0x01}}, a.got())
	s.Equal([][]byte{{0x02}}, b.got())
	s.Equal(1, s.Session.Handlers())
}

func (s *SessionSuite) TestSubscribeFailure() {
	s.connectReady()
	rec := &recorder{}

	done := s.async(func() error { return s.Session.Subscribe(context.Background(), hrService, hrMeasure, rec.handle) })
	s.Platform.Expect(s.T(), "SetNotifyState").Complete(errors.New("cccd write failed"))

	s.ErrorIs(s.await(done), ErrSubscribeFailed)
	s.emit(hrMeasure, 0x01)
	s.Empty(rec.got())
	s.Equal(0, s.Session.Handlers())
}

func (s *SessionSuite) TestUnsubscribeStopsDeliveryImmediately() {
	s.connectReady()
	rec := &recorder{}
	s.subscribe(hrMeasure, rec.handle)

	done := s.async(func() error { return s.Session.Unsubscribe(context.Background(), hrService, hrMeasure) })
	req := s.Platform.Expect(s.T(), "SetNotifyState")
	s.False(req.Enable)

	// platform has not confirmed yet
	s.emit(hrMeasure, 0x01)
	s.Empty(rec.got())

	req.Complete(errors.New("cccd write failed"))
	s.ErrorIs(s.await(done), ErrUnsubscribeFailed)

	// no rollback
	s.emit(hrMeasure, 0x02)
	s.Empty(rec.got())
	s.Equal(0, s.Session.Handlers())
}

func (s *SessionSuite) TestUnsubscribe() {
	s.connectReady()
	s.subscribe(hrMeasure, func(platform.ValueChange) {})

	done := s.async(func() error { return s.Session.Unsubscribe(context.Background(), hrService, hrMeasure) })
	s.Platform.Expect(s.T(), "SetNotifyState").Complete(nil)
	s.NoError(s.await(done))
	s.Equal(0, s.Session.Handlers())
}

func (s *SessionSuite) TestDispatchIgnoresUnknownCharacteristics() {
	s.connectReady()
	rec := &recorder{}
	s.subscribe(hrMeasure, rec.handle)

	s.emit("2a38", 0x01)
	s.Empty(rec.got())
}

func (s *SessionSuite) TestCloseReleasesDispatcher() {
	s.connectReady()
	rec := &recorder{}
	s.subscribe(hrMeasure, rec.handle)
	s.Equal(1, s.Platform.ValueChangeListeners())

	s.Session.Close()

	s.Equal(0, s.Platform.ValueChangeListeners())
	s.Equal(0, s.Session.Handlers())
	s.Equal(StateIdle, s.Session.State())
	s.emit(hrMeasure, 0x01)
	s.Empty(rec.got())
}
