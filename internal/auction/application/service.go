package application

import (
	"context"

	"github.com/cfuentes/bidroom/internal/auction/domain"
)

// AuctionService is the application-layer surface of the auction module,
// consumed by both the websocket protocol handler and the HTTP routes.
type AuctionService interface {
	CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error)
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error)
	EndRoom(ctx context.Context, roomID, requestedBy string, reason domain.EndReason) (*FinalStateDTO, error)
	DeleteAuction(ctx context.Context, roomID, requestedBy string) (*FinalStatsDTO, error)
	Join(ctx context.Context, roomID, username string) ([]string, error)
	Leave(ctx context.Context, roomID, username string, reason domain.LeaveReason) ([]string, error)
	GetRoomSnapshot(ctx context.Context, roomID string) (*RoomSnapshotDTO, error)
	ListAuctions(ctx context.Context) ([]AuctionSummaryDTO, error)
	ListBids(ctx context.Context, roomID string, limit, offset int) ([]BidDTO, error)
	ListUserAuctions(ctx context.Context, username string) (*UserAuctionsDTO, error)
}

type auctionService struct {
	createUC *CreateAuctionUseCase
	placeBid *PlaceBidUseCase
	endRoom  *EndRoomUseCase
	deleteUC *DeleteAuctionUseCase
	presence *PresenceTracker
	queries  *RoomQueries
}

func NewAuctionService(
	createUC *CreateAuctionUseCase,
	placeBid *PlaceBidUseCase,
	endRoom *EndRoomUseCase,
	deleteUC *DeleteAuctionUseCase,
	presence *PresenceTracker,
	queries *RoomQueries,
) AuctionService {
	return &auctionService{
		createUC: createUC,
		placeBid: placeBid,
		endRoom:  endRoom,
		deleteUC: deleteUC,
		presence: presence,
		queries:  queries,
	}
}

func (s *auctionService) CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error) {
	return s.createUC.Execute(ctx, cmd)
}

func (s *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	return s.placeBid.Execute(ctx, cmd)
}

func (s *auctionService) EndRoom(ctx context.Context, roomID, requestedBy string, reason domain.EndReason) (*FinalStateDTO, error) {
	return s.endRoom.Execute(ctx, roomID, requestedBy, reason)
}

func (s *auctionService) DeleteAuction(ctx context.Context, roomID, requestedBy string) (*FinalStatsDTO, error) {
	return s.deleteUC.Execute(ctx, roomID, requestedBy)
}

func (s *auctionService) Join(ctx context.Context, roomID, username string) ([]string, error) {
	return s.presence.Join(ctx, roomID, username)
}

func (s *auctionService) Leave(ctx context.Context, roomID, username string, reason domain.LeaveReason) ([]string, error) {
	return s.presence.Leave(ctx, roomID, username, reason)
}

func (s *auctionService) GetRoomSnapshot(ctx context.Context, roomID string) (*RoomSnapshotDTO, error) {
	return s.queries.GetRoomSnapshot(ctx, roomID)
}

func (s *auctionService) ListAuctions(ctx context.Context) ([]AuctionSummaryDTO, error) {
	return s.queries.ListAuctions(ctx)
}

func (s *auctionService) ListBids(ctx context.Context, roomID string, limit, offset int) ([]BidDTO, error) {
	return s.queries.ListBids(ctx, roomID, limit, offset)
}

func (s *auctionService) ListUserAuctions(ctx context.Context, username string) (*UserAuctionsDTO, error) {
	return s.queries.ListUserAuctions(ctx, username)
}
