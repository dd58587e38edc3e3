package dao

type DaoManager struct {
	*VoteDao
}

func NewDaoManager(voteDao *VoteDao) *DaoManager {
	return &DaoManager{
		VoteDao: voteDao,
	}
}
