package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/ceyewan/flake/clog"
	"github.com/ceyewan/flake/idgen"
	"github.com/ceyewan/flake/xerrors"
)

const (
	healthCheckTimeout = 2 * time.Second
	countKey           = "flake.count"
)

// idResponse 持久化失败时 ID 仍然有效，错误放在 persist_error 中由调用方判断
type idResponse struct {
	ID           string `json:"id"`
	PersistError string `json:"persist_error,omitempty"`
}

type idsResponse struct {
	IDs          []string `json:"ids"`
	PersistError string   `json:"persist_error,omitempty"`
}

// idsMsgPack 批量接口的 MessagePack 形式，ID 保持 uint64
type idsMsgPack struct {
	IDs          []uint64 `msgpack:"ids"`
	PersistError string   `msgpack:"persist_error,omitempty"`
}

type identityResponse struct {
	idgen.Identity
	Method string    `json:"method"`
	Epoch  int64     `json:"epoch"`
	Since  time.Time `json:"epoch_time"`
}

func (s *Server) handleID(c *gin.Context) {
	ctx := c.Request.Context()
	id, err := s.gen.Next(ctx)
	resp := idResponse{}
	if err != nil {
		if !xerrors.Is(err, idgen.ErrPersistence) {
			s.fail(c, err)
			return
		}
		resp.PersistError = err.Error()
	}
	resp.ID = id.String()
	c.JSON(http.StatusOK, resp)
}

// batchCount 解析并校验 count，结果存入 countKey
func (s *Server) batchCount(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("count", "1"))
	if err != nil || count < 1 || count > s.cfg.MaxBatch {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"error": "count must be an integer in [1, " + strconv.Itoa(s.cfg.MaxBatch) + "]",
		})
		return
	}
	c.Set(countKey, count)
	c.Next()
}

func (s *Server) handleIDs(c *gin.Context) {
	count := c.GetInt(countKey)
	ids, err := s.gen.NextN(c.Request.Context(), count)
	persistErr := ""
	if err != nil {
		if !xerrors.Is(err, idgen.ErrPersistence) {
			s.fail(c, err)
			return
		}
		persistErr = err.Error()
	}

	switch c.NegotiateFormat(binding.MIMEJSON, binding.MIMEMSGPACK, binding.MIMEMSGPACK2) {
	case binding.MIMEMSGPACK, binding.MIMEMSGPACK2:
		s.renderMsgPack(c, ids, persistErr)
	default:
		resp := idsResponse{IDs: make([]string, len(ids)), PersistError: persistErr}
		for i, id := range ids {
			resp.IDs[i] = id.String()
		}
		c.JSON(http.StatusOK, resp)
	}
}

func (s *Server) renderMsgPack(c *gin.Context, ids []idgen.ID, persistErr string) {
	resp := idsMsgPack{IDs: make([]uint64, len(ids)), PersistError: persistErr}
	for i, id := range ids {
		resp.IDs[i] = uint64(id)
	}
	body, err := msgpack.Marshal(&resp)
	if err != nil {
		s.fail(c, xerrors.Wrap(err, "encode msgpack"))
		return
	}
	c.Data(http.StatusOK, binding.MIMEMSGPACK2, body)
}

func (s *Server) handleDecode(c *gin.Context) {
	id, err := idgen.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, idgen.Decompose(id, s.gen.Epoch()))
}

func (s *Server) handleIdentity(c *gin.Context) {
	c.JSON(http.StatusOK, identityResponse{
		Identity: s.gen.Identity(),
		Method:   s.gen.Method(),
		Epoch:    s.gen.Epoch(),
		Since:    time.UnixMilli(s.gen.Epoch()).UTC(),
	})
}

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(s.checks))
	for name, check := range s.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			checks[name] = err.Error()
			s.logger.WarnContext(ctx, "health check failed", clog.String("check", name), clog.Error(err))
			continue
		}
		checks[name] = "ok"
	}

	state := "ok"
	if status != http.StatusOK {
		state = "degraded"
	}
	c.JSON(status, gin.H{"status": state, "checks": checks})
}

// fail 生成器只在 ctx 取消时返回非持久化错误，其余为编码失败
func (s *Server) fail(c *gin.Context, err error) {
	s.logger.ErrorContext(c.Request.Context(), "generate id failed", clog.Error(err))
	status := http.StatusInternalServerError
	if xerrors.Is(err, context.Canceled) || xerrors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
