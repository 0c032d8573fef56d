package server

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"fleethub/internal/audit"
	"fleethub/internal/client"
	"fleethub/internal/config"
	"fleethub/internal/database"
	"fleethub/internal/protocol"
	"fleethub/internal/repository"
)

// ServerSuite runs the full protocol against a live server: real sockets,
// real ephemeral ports, a seeded throwaway database per test.
type ServerSuite struct {
	suite.Suite
	srv *Server
	db  *gorm.DB
	cfg *config.Config
}

func (s *ServerSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))

	s.cfg = &config.Config{
		ServerPort:      20000 + rand.Intn(20000),
		DatabaseURL:     filepath.Join(s.T().TempDir(), "inventory.db"),
		FollowUpTimeout: 5 * time.Second,
		LogLevel:        "error",
	}

	db, err := database.ConnectDB(s.cfg, logger)
	s.Require().NoError(err)
	s.db = db
	s.Require().NoError(repository.Seed(context.Background(), db))

	s.srv = NewServer(s.cfg, db, logger)
	go s.srv.Start()
	s.waitForServer()
}

func (s *ServerSuite) TearDownTest() {
	s.srv.Stop()
	s.srv.Wait()
}

func (s *ServerSuite) waitForServer() {
	if !waitForPort(s.cfg.ServerPort) {
		s.FailNow(fmt.Sprintf("server never came up on port %d", s.cfg.ServerPort))
	}
}

func waitForPort(port int) bool {
	addr := net.JoinHostPort(protocol.Host, strconv.Itoa(port))
	for i := 0; i < 50; i++ {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return false
}

func (s *ServerSuite) newClient() *client.Client {
	c, err := client.New(s.cfg.ServerPort)
	s.Require().NoError(err)
	s.T().Cleanup(func() { c.Close() })
	return c
}

func (s *ServerSuite) await(c *client.Client) protocol.Message {
	msg, err := c.Await(10 * time.Second)
	s.Require().NoError(err)
	return msg
}

func TestServerSuite(t *testing.T) {
	suite.Run(t, new(ServerSuite))
}

func (s *ServerSuite) TestVehicleAddThenDecline() {
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":            "add",
		"data_type":         "vehicle",
		"model":             "Civic",
		"quantity":          4,
		"price":             21000.0,
		"manufacture_year":  2020,
		"manufacture_month": 1,
		"manufacture_date":  15,
	}))

	resp := s.await(c)
	s.Equal(protocol.StatusSuccess, resp["status"])
	s.Equal("Civic", resp["model"])
	s.Require().Contains(resp, "port")
	port, err := resp.Int("port")
	s.Require().NoError(err)
	s.True(s.srv.Broker().InUse(port))

	// decline the assignment question; the flow ends with no more replies
	s.Require().NoError(c.Respond(port, protocol.Message{"response": "n"}))

	// the ephemeral port goes back to the pool
	s.Eventually(func() bool {
		return !s.srv.Broker().InUse(port)
	}, 5*time.Second, 50*time.Millisecond)

	// the vehicle was stored before the question was asked
	read := s.newClient()
	s.Require().NoError(read.SendJob(protocol.Message{
		"action":    "read",
		"data_type": "vehicle",
		"model":     "Civic",
	}))
	reply := s.await(read)
	s.Equal(protocol.StatusSuccess, reply["status"])
	vehicles, ok := reply["vehicles"].([]any)
	s.Require().True(ok)
	s.Len(vehicles, 1)
}

func (s *ServerSuite) TestVehicleAddAssignsEngineers() {
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":            "add",
		"data_type":         "vehicle",
		"model":             "Ranger",
		"quantity":          2,
		"price":             29000.0,
		"manufacture_year":  2021,
		"manufacture_month": 3,
		"manufacture_date":  10,
	}))

	resp := s.await(c)
	s.Require().Equal(protocol.StatusSuccess, resp["status"])
	port, err := resp.Int("port")
	s.Require().NoError(err)

	s.Require().NoError(c.Respond(port, protocol.Message{
		"response":  "y",
		"engineers": []string{"Cameron Foss", "Nobody Real"},
	}))

	final := s.await(c)
	s.Equal(protocol.StatusSuccess, final["status"])
	assigned, err := final.StringList("assigned")
	s.Require().NoError(err)
	s.Equal([]string{"Cameron Foss"}, assigned)
	unassigned, err := final.StringList("unassigned")
	s.Require().NoError(err)
	s.Equal([]string{"Nobody Real"}, unassigned)
}

func (s *ServerSuite) TestDuplicateVehicleMergesQuantity() {
	c := s.newClient()
	// Fusion is seeded with quantity 3
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":            "add",
		"data_type":         "vehicle",
		"model":             "Fusion",
		"quantity":          2,
		"price":             23170.0,
		"manufacture_year":  2019,
		"manufacture_month": 10,
		"manufacture_date":  5,
	}))

	resp := s.await(c)
	s.Equal(protocol.StatusUpdated, resp["status"])

	read := s.newClient()
	s.Require().NoError(read.SendJob(protocol.Message{
		"action":    "read",
		"data_type": "vehicle",
		"model":     "Fusion",
	}))
	reply := s.await(read)
	vehicles, ok := reply["vehicles"].([]any)
	s.Require().True(ok)
	s.Require().Len(vehicles, 1)
	row, ok := vehicles[0].(map[string]any)
	s.Require().True(ok)
	s.Equal(5.0, row["quantity"])
}

func (s *ServerSuite) TestVehicleAddRejectsBadDate() {
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":            "add",
		"data_type":         "vehicle",
		"model":             "TimeMachine",
		"quantity":          1,
		"price":             1000.0,
		"manufacture_year":  1900,
		"manufacture_month": 1,
		"manufacture_date":  1,
	}))

	resp := s.await(c)
	s.Equal(protocol.StatusError, resp["status"])
	s.Contains(resp, "text")
}

func (s *ServerSuite) TestUnknownActionReported() {
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":    "frobnicate",
		"data_type": "vehicle",
	}))

	resp := s.await(c)
	s.Equal(protocol.StatusError, resp["status"])
	text, err := resp.String("text")
	s.Require().NoError(err)
	s.Contains(text, "frobnicate")
}

func (s *ServerSuite) TestUnknownDataTypeReported() {
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":    "read",
		"data_type": "spaceship",
	}))

	resp := s.await(c)
	s.Equal(protocol.StatusError, resp["status"])
}

func (s *ServerSuite) TestJobWithoutPortIsDroppedQuietly() {
	// no callback port, nowhere to reply; the server must shrug it off
	s.Require().NoError(protocol.Send(protocol.Host, s.cfg.ServerPort, protocol.Message{
		"action":    "read",
		"data_type": "vehicle",
		"model":     "all",
	}))

	// and stay responsive for the next client
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":    "read",
		"data_type": "vehicle",
		"model":     "all",
	}))
	resp := s.await(c)
	s.Equal(protocol.StatusSuccess, resp["status"])
	vehicles, ok := resp["vehicles"].([]any)
	s.Require().True(ok)
	s.Len(vehicles, 4)
}

func (s *ServerSuite) TestLaptopAddWithUnknownEngineer() {
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":     "add",
		"data_type":  "laptop",
		"model":      "Thinkpad X1",
		"loan_year":  2021,
		"loan_month": 5,
		"loan_date":  20,
		"engineer":   "Nobody Real",
	}))

	resp := s.await(c)
	s.Equal(protocol.StatusNoEngineer, resp["status"])
	port, err := resp.Int("port")
	s.Require().NoError(err)

	s.Require().NoError(c.Respond(port, protocol.Message{"response": "y"}))

	final := s.await(c)
	s.Equal(protocol.StatusSuccess, final["status"])
	s.Equal("Thinkpad X1", final["model"])
	s.Equal("None", final["engineer"])
	s.Equal(false, final["replaced"])
	s.NotContains(final, "port")
}

func (s *ServerSuite) TestLaptopAddDeclineIsSilent() {
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":     "add",
		"data_type":  "laptop",
		"model":      "Thinkpad X1",
		"loan_year":  2021,
		"loan_month": 5,
		"loan_date":  20,
		"engineer":   "Nobody Real",
	}))

	resp := s.await(c)
	s.Equal(protocol.StatusNoEngineer, resp["status"])
	port, err := resp.Int("port")
	s.Require().NoError(err)

	s.Require().NoError(c.Respond(port, protocol.Message{"response": "n"}))

	// a declined confirmation gets no reply at all
	_, err = c.Await(3 * time.Second)
	s.ErrorIs(err, client.ErrAwaitTimeout)

	// and no laptop appeared
	read := s.newClient()
	s.Require().NoError(read.SendJob(protocol.Message{
		"action":    "read",
		"data_type": "laptop",
		"model":     "all",
	}))
	reply := s.await(read)
	laptops, ok := reply["laptops"].([]any)
	s.Require().True(ok)
	s.Len(laptops, 3)
}

func (s *ServerSuite) TestLaptopReplaceFlow() {
	c := s.newClient()
	// Cameron Foss already holds the seeded Macbook Air
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":     "add",
		"data_type":  "laptop",
		"model":      "Thinkpad X1",
		"loan_year":  2021,
		"loan_month": 5,
		"loan_date":  20,
		"engineer":   "Cameron Foss",
	}))

	resp := s.await(c)
	s.Equal(protocol.StatusPreviousLaptop, resp["status"])
	s.Equal("Macbook Air", resp["model"])
	port, err := resp.Int("port")
	s.Require().NoError(err)

	s.Require().NoError(c.Respond(port, protocol.Message{"response": "y"}))

	final := s.await(c)
	s.Equal(protocol.StatusSuccess, final["status"])
	s.Equal("Thinkpad X1", final["model"])
	s.Equal("Cameron Foss", final["engineer"])
	s.Equal(true, final["replaced"])

	// the previous laptop is gone, not orphaned
	read := s.newClient()
	s.Require().NoError(read.SendJob(protocol.Message{
		"action":    "read",
		"data_type": "laptop",
		"model":     "Macbook Air",
	}))
	reply := s.await(read)
	s.Equal(protocol.StatusError, reply["status"])
}

func (s *ServerSuite) TestContactAddRequiresEngineer() {
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":       "add",
		"data_type":    "contact_details",
		"phone_number": "555-123-4567",
		"address":      "1 Somewhere St",
		"engineer":     "Nobody Real",
	}))

	resp := s.await(c)
	s.Equal(protocol.StatusError, resp["status"])
}

func (s *ServerSuite) TestContactDuplicatePhoneRejected() {
	c := s.newClient()
	// 989-906-0292 is Cameron's seeded number
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":       "add",
		"data_type":    "contact_details",
		"phone_number": "989-906-0292",
		"address":      "somewhere else entirely",
		"engineer":     "Prerna Sancheti",
	}))

	resp := s.await(c)
	s.Equal(protocol.StatusError, resp["status"])
}

func (s *ServerSuite) TestContactUpdateUnsupported() {
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":    "update",
		"data_type": "contact_details",
		"id":        1,
	}))

	resp := s.await(c)
	s.Equal(protocol.StatusError, resp["status"])
	text, err := resp.String("text")
	s.Require().NoError(err)
	s.Contains(text, "not supported")
}

func (s *ServerSuite) TestVehicleEngineersJoinBothSides() {
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":    "read",
		"data_type": "vehicle_engineers",
		"model":     "Fusion",
		"engineer":  "Cameron Foss",
	}))

	resp := s.await(c)
	s.Equal(protocol.StatusSuccess, resp["status"])

	engins, ok := resp["engineers"].([]any)
	s.Require().True(ok)
	s.Len(engins, 2) // Prerna and Jaiven are seeded onto the Fusion

	cars, ok := resp["vehicles"].([]any)
	s.Require().True(ok)
	s.Len(cars, 2) // Cameron is seeded onto Explorer and the Mustang
}

func (s *ServerSuite) TestVehicleEngineersRejectsWrites() {
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":    "delete",
		"data_type": "vehicle_engineers",
		"model":     "Fusion",
	}))

	resp := s.await(c)
	s.Equal(protocol.StatusError, resp["status"])
}

func (s *ServerSuite) TestEngineerUpdateReplacesAssignments() {
	// find Cameron's id first
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":    "read",
		"data_type": "engineer",
		"name":      "Cameron Foss",
	}))
	reply := s.await(c)
	engins, ok := reply["engineers"].([]any)
	s.Require().True(ok)
	s.Require().Len(engins, 1)
	row := engins[0].(map[string]any)
	id := int(row["id"].(float64))

	upd := s.newClient()
	s.Require().NoError(upd.SendJob(protocol.Message{
		"action":    "update",
		"data_type": "engineer",
		"id":        id,
		"vehicles":  []string{"Bronco"},
	}))

	resp := s.await(upd)
	s.Equal(protocol.StatusSuccess, resp["status"])

	assigned, err := resp.StringList("assigned_models")
	s.Require().NoError(err)
	s.Equal([]string{"Bronco"}, assigned)

	unassigned, err := resp.StringList("unassigned_models")
	s.Require().NoError(err)
	s.ElementsMatch([]string{"Explorer", "Mustang Shelby GT500"}, unassigned)
}

func (s *ServerSuite) TestResetRestoresSeedData() {
	del := s.newClient()
	s.Require().NoError(del.SendJob(protocol.Message{
		"action":    "delete",
		"data_type": "vehicle",
		"model":     "Fusion",
	}))
	s.Equal(protocol.StatusSuccess, s.await(del)["status"])

	reset := s.newClient()
	s.Require().NoError(reset.SendJob(protocol.Message{"action": "reset"}))
	s.Equal(protocol.StatusSuccess, s.await(reset)["status"])

	read := s.newClient()
	s.Require().NoError(read.SendJob(protocol.Message{
		"action":    "read",
		"data_type": "vehicle",
		"model":     "all",
	}))
	reply := s.await(read)
	vehicles, ok := reply["vehicles"].([]any)
	s.Require().True(ok)
	s.Len(vehicles, 4)
}

func (s *ServerSuite) TestFollowUpWithoutResponseReportsError() {
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":            "add",
		"data_type":         "vehicle",
		"model":             "Escort",
		"quantity":          1,
		"price":             15000.0,
		"manufacture_year":  2020,
		"manufacture_month": 6,
		"manufacture_date":  1,
	}))

	resp := s.await(c)
	s.Require().Equal(protocol.StatusSuccess, resp["status"])
	port, err := resp.Int("port")
	s.Require().NoError(err)
	s.True(s.srv.Broker().InUse(port))

	// a follow-up without a "response" entry is a protocol violation; the
	// error goes back to the original callback port
	s.Require().NoError(c.Respond(port, protocol.Message{"ignored": true}))

	reply := s.await(c)
	s.Equal(protocol.StatusError, reply["status"])
	text, err := reply.String("text")
	s.Require().NoError(err)
	s.Contains(text, "response")

	// and the ephemeral port is not leaked
	s.Eventually(func() bool {
		return !s.srv.Broker().InUse(port)
	}, 5*time.Second, 50*time.Millisecond)
}

func (s *ServerSuite) TestFollowUpYesWithoutEngineersReportsError() {
	c := s.newClient()
	s.Require().NoError(c.SendJob(protocol.Message{
		"action":            "add",
		"data_type":         "vehicle",
		"model":             "Fiesta",
		"quantity":          1,
		"price":             14000.0,
		"manufacture_year":  2020,
		"manufacture_month": 6,
		"manufacture_date":  1,
	}))

	resp := s.await(c)
	s.Require().Equal(protocol.StatusSuccess, resp["status"])
	port, err := resp.Int("port")
	s.Require().NoError(err)

	// "y" promises an "engineers" list; omitting it is an error
	s.Require().NoError(c.Respond(port, protocol.Message{"response": "y"}))

	reply := s.await(c)
	s.Equal(protocol.StatusError, reply["status"])
	text, err := reply.String("text")
	s.Require().NoError(err)
	s.Contains(text, "engineers")

	s.Eventually(func() bool {
		return !s.srv.Broker().InUse(port)
	}, 5*time.Second, 50*time.Millisecond)
}

// startTestServer brings up a server outside the suite for tests that need
// a non-default configuration.
func startTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	db, err := database.ConnectDB(cfg, logger)
	require.NoError(t, err)
	require.NoError(t, repository.Seed(context.Background(), db))

	srv := NewServer(cfg, db, logger)
	go srv.Start()
	t.Cleanup(func() {
		srv.Stop()
		srv.Wait()
	})
	require.True(t, waitForPort(cfg.ServerPort), "server never came up")
	return srv
}

func TestSingleThreadedAddConversation(t *testing.T) {
	cfg := &config.Config{
		ServerPort:      20000 + rand.Intn(20000),
		DatabaseURL:     filepath.Join(t.TempDir(), "inventory.db"),
		SingleThreaded:  true,
		FollowUpTimeout: 5 * time.Second,
		LogLevel:        "error",
	}
	startTestServer(t, cfg)

	// inline dispatch must still carry a full multi-round-trip add: the
	// follow-up arrives on the ephemeral port, not the blocked accept loop
	c, err := client.New(cfg.ServerPort)
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SendJob(protocol.Message{
		"action":            "add",
		"data_type":         "vehicle",
		"model":             "Puma",
		"quantity":          2,
		"price":             27000.0,
		"manufacture_year":  2021,
		"manufacture_month": 2,
		"manufacture_date":  8,
	}))

	resp, err := c.Await(10 * time.Second)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusSuccess, resp["status"])
	port, err := resp.Int("port")
	require.NoError(t, err)

	require.NoError(t, c.Respond(port, protocol.Message{
		"response":  "y",
		"engineers": []string{"Prerna Sancheti"},
	}))

	final, err := c.Await(10 * time.Second)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusSuccess, final["status"])
	assigned, err := final.StringList("assigned")
	require.NoError(t, err)
	require.Equal(t, []string{"Prerna Sancheti"}, assigned)

	// and the accept loop is free again for the next job
	read, err := client.New(cfg.ServerPort)
	require.NoError(t, err)
	defer read.Close()
	require.NoError(t, read.SendJob(protocol.Message{
		"action":    "read",
		"data_type": "vehicle",
		"model":     "Puma",
	}))
	reply, err := read.Await(10 * time.Second)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusSuccess, reply["status"])
}

type capturingRecorder struct {
	mu      sync.Mutex
	records []audit.Record
}

func (r *capturingRecorder) Record(_ context.Context, rec audit.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *capturingRecorder) last() (audit.Record, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.records) == 0 {
		return audit.Record{}, false
	}
	return r.records[len(r.records)-1], true
}

func TestFailedResetIsRecordedAsError(t *testing.T) {
	cfg := &config.Config{
		ServerPort:      20000 + rand.Intn(20000),
		DatabaseURL:     filepath.Join(t.TempDir(), "inventory.db"),
		FollowUpTimeout: 5 * time.Second,
		LogLevel:        "error",
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelError,
	}))
	db, err := database.ConnectDB(cfg, logger)
	require.NoError(t, err)
	require.NoError(t, repository.Seed(context.Background(), db))

	recorder := &capturingRecorder{}
	srv := NewServer(cfg, db, logger)
	srv.SetRecorder(recorder)
	go srv.Start()
	t.Cleanup(func() {
		srv.Stop()
		srv.Wait()
	})
	require.True(t, waitForPort(cfg.ServerPort), "server never came up")

	// pull the store out from under the server so the reset fails
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	c, err := client.New(cfg.ServerPort)
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.SendJob(protocol.Message{"action": "reset"}))

	resp, err := c.Await(10 * time.Second)
	require.NoError(t, err)
	require.Equal(t, protocol.StatusError, resp["status"])

	require.Eventually(t, func() bool {
		rec, ok := recorder.last()
		return ok && rec.Action == "reset" && rec.Status == protocol.StatusError
	}, 5*time.Second, 50*time.Millisecond)
}
