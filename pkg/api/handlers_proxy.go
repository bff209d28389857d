package api

import (
	"net/http"

	"github.com/hypermesh/stoq/pkg/types"
)

type allocateProxyRequest struct {
	AssetKind string `json:"asset_kind"`
	AssetID   string `json:"asset_id"`
}

type proxyAddressResponse struct {
	Address string `json:"address"`
}

func (s *Server) handleProxyAllocate(w http.ResponseWriter, r *http.Request) {
	var req allocateProxyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	asset := types.AssetID{Kind: types.AssetKind(req.AssetKind), ID: req.AssetID}
	addr, err := s.node.ProxyResolver().Allocate(asset)
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, proxyAddressResponse{Address: addr.String()})
}

type resolveProxyRequest struct {
	Address string `json:"address"`
}

type resolveProxyResponse struct {
	AssetKind string `json:"asset_kind"`
	AssetID   string `json:"asset_id"`
}

func (s *Server) handleProxyResolve(w http.ResponseWriter, r *http.Request) {
	addr := r.URL.Query().Get("address")
	if addr == "" {
		var req resolveProxyRequest
		if err := decodeJSON(r, &req); err == nil {
			addr = req.Address
		}
	}
	parsed, err := types.ParseProxyAddress(addr)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	asset, err := s.node.ProxyResolver().Resolve(parsed)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resolveProxyResponse{AssetKind: string(asset.Kind), AssetID: asset.ID})
}

type releaseProxyRequest struct {
	AssetKind string `json:"asset_kind"`
	AssetID   string `json:"asset_id"`
}

func (s *Server) handleProxyRelease(w http.ResponseWriter, r *http.Request) {
	var req releaseProxyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	asset := types.AssetID{Kind: types.AssetKind(req.AssetKind), ID: req.AssetID}
	if err := s.node.ProxyResolver().Release(asset); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, struct{}{})
}
